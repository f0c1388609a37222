// Package wsl wraps the WSL command surface and the fixed in-guest
// configuration sequences run after import.
package wsl

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// LocaleStep is one command of the locale configuration sequence
type LocaleStep struct {
	Name string
	Argv []string
}

// StepResult records the outcome of one locale step. Steps are independent
// shell invocations; the caller decides the aggregate policy.
type StepResult struct {
	Step LocaleStep
	Err  error
}

// DefaultLocaleSteps returns the fixed four-step locale sequence for a
// Rocky Linux instance: package index refresh, locale package install,
// locale generation, environment reload.
func DefaultLocaleSteps(locale string) []LocaleStep {
	charmap := "UTF-8"
	langpack := "glibc-langpack-" + strings.SplitN(locale, "_", 2)[0]

	return []LocaleStep{
		{Name: "package_index_update", Argv: []string{"dnf", "-y", "makecache"}},
		{Name: "locale_package_install", Argv: []string{"dnf", "-y", "install", "glibc-locale-source", langpack}},
		{Name: "locale_generate", Argv: []string{"localedef", "-i", locale, "-f", charmap, fmt.Sprintf("%s.%s", locale, charmap)}},
		{Name: "environment_reload", Argv: []string{"sh", "-lc", fmt.Sprintf("echo LANG=%s.%s > /etc/locale.conf", locale, charmap)}},
	}
}

// ConfigureLocale runs every step inside the named distribution regardless
// of individual failures and returns the ordered results
func ConfigureLocale(ctx context.Context, mgr Manager, distroName string, steps []LocaleStep) []StepResult {
	results := make([]StepResult, 0, len(steps))

	for _, step := range steps {
		slog.Info("locale_step_start", "distro", distroName, "step", step.Name)

		err := mgr.Exec(ctx, distroName, step.Argv...)
		if err != nil {
			slog.Warn("locale_step_failed", "distro", distroName, "step", step.Name, "error", err)
		} else {
			slog.Info("locale_step_complete", "distro", distroName, "step", step.Name)
		}

		results = append(results, StepResult{Step: step, Err: err})
	}

	return results
}

// FailedSteps counts the failures in a locale run
func FailedSteps(results []StepResult) int {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	return failed
}
