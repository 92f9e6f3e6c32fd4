package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli"

	"coloft/internal/capture"
	"coloft/internal/dataset"
	"coloft/internal/render"
	"coloft/internal/site"
	"coloft/internal/stale"
	"coloft/internal/validate"
)

func build(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}

	st, err := site.NewBuilder(e.fs, e.cfg, e.sched).Build(e.today())
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Built %d pages in %s\n", len(st.Files), e.cfg.OutputDir)
	for _, s := range e.cfg.States {
		fmt.Fprintf(w, "  %s: %d regions\n", s.Label, st.ByState[s.ID])
	}
	fmt.Fprintf(w, "  %d regional events, %d scheduled events\n", st.Events, st.Scheduled)
	return nil
}

func dates(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}

	ids := []string(c.Args())
	if len(ids) == 0 {
		ids = e.sched.IDs()
	}

	asOf := e.today()
	w := c.App.Writer
	for _, id := range ids {
		upcoming, err := e.sched.UpcomingOccurrences(id, asOf)
		if err != nil {
			return err
		}
		entry, _ := e.sched.Entry(id)
		fmt.Fprintf(w, "%s (%s): %s\n", entry.Name, id, entry.Rule)
		if len(upcoming) == 0 {
			fmt.Fprintln(w, "  no upcoming dates")
			continue
		}
		for _, d := range upcoming {
			fmt.Fprintf(w, "  %s  %s\n", d, render.FormatDate(d))
		}
	}
	return nil
}

func loadDataset(e *env) (*dataset.Data, error) {
	return dataset.Load(e.fs, e.cfg.DataPath)
}

func validateDataset(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	data, err := loadDataset(e)
	if err != nil {
		return err
	}

	rep := validate.Dataset(data)
	w := c.App.Writer
	fmt.Fprintf(w, "Validated %d events in %d regions\n", rep.Events, rep.Regions)
	for _, sev := range []validate.Severity{validate.SeverityError, validate.SeverityWarning} {
		n := rep.Count(sev)
		if n == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s (%d):\n", strings.ToUpper(string(sev))+"S", n)
		for _, f := range rep.Findings {
			if f.Severity == sev {
				fmt.Fprintf(w, "  %s\n", f)
			}
		}
	}

	if rep.HasErrors() {
		return fmt.Errorf("validation failed with %d errors", rep.Count(validate.SeverityError))
	}
	fmt.Fprintln(w, "\nValidation passed")
	return nil
}

func staleDates(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	data, err := loadDataset(e)
	if err != nil {
		return err
	}

	rep := stale.Check(data, e.today())
	w := c.App.Writer
	section := func(title string, items []stale.Item) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(w, "\n%s (%d):\n", title, len(items))
		for _, it := range items {
			fmt.Fprintf(w, "  [%s] %s (%s)\n", it.Status, it.Name, it.Region)
			fmt.Fprintf(w, "      %s\n", it.Schedule)
		}
	}
	section("Annual events and festivals", rep.Annual)
	section("Seasonal events", rep.Seasonal)
	section("Recurring events with specific dates", rep.SpecificDates)

	fmt.Fprintf(w, "\n%d events need date review. Next check: %s\n", rep.NeedingUpdates(), render.FormatDate(rep.NextCheck))
	return nil
}

func order(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	data, err := loadDataset(e)
	if err != nil {
		return err
	}

	problems := dataset.VerifyOrder(data, e.cfg.RegionOrder)
	w := c.App.Writer
	if len(problems) == 0 {
		fmt.Fprintln(w, "Regions are in north-to-south order")
		return nil
	}
	for _, p := range problems {
		fmt.Fprintf(w, "  %s\n", p)
	}
	return fmt.Errorf("%d region order problems", len(problems))
}

func printCheck(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	w := c.App.Writer
	var failed []string
	for _, page := range e.cfg.PrintCheck.Pages {
		url, err := capture.FileURL(filepath.Join(e.cfg.OutputDir, page))
		if err != nil {
			return err
		}
		res, err := capture.PrintFit(ctx, capture.PrintOptions{
			URL:      url,
			MaxPages: e.cfg.PrintCheck.MaxPages,
			Timeout:  e.cfg.PrintCheck.Timeout,
		})
		if err != nil {
			return err
		}
		status := "PASS"
		if !res.Fits() {
			status = "FAIL"
			failed = append(failed, page)
		}
		fmt.Fprintf(w, "%s: %d page(s), max %d, %s\n", page, res.Pages, res.MaxPages, status)
	}

	if len(failed) > 0 {
		sort.Strings(failed)
		return errors.New("print overflow: " + strings.Join(failed, ", "))
	}
	return nil
}
