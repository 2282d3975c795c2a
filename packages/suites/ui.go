package suites

import (
	"context"
	"fmt"

	"github.com/uv1406/harness/packages/builtin"
	"github.com/uv1406/harness/packages/core/config"
	"github.com/uv1406/harness/packages/core/runner"
	"github.com/uv1406/harness/packages/data"
	"github.com/uv1406/harness/packages/pages"
)

// FormTable is the data set table read for the text box test. Column values
// may carry generator placeholders such as {{$randomEmail()}}.
const FormTable = "form_data"

// DefaultForms is used when no data source is configured.
var DefaultForms = []pages.Form{
	{
		FullName:         "Ada Lovelace",
		Email:            "ada@example.com",
		CurrentAddress:   "12 St James's Square, London",
		PermanentAddress: "Ockham Park, Surrey",
	},
}

// UI builds one text box test per form row plus the check box test.
func UI(ctx context.Context, cfg *config.Config) ([]runner.Test, error) {
	if err := cfg.RequireApp(); err != nil {
		return nil, err
	}
	forms, err := loadForms(ctx, cfg.DataSource)
	if err != nil {
		return nil, err
	}

	var tests []runner.Test
	for _, f := range forms {
		tests = append(tests, runner.Test{
			Name: "text box form/" + f.FullName,
			Tags: []string{"ui", "regression"},
			Body: textBoxForm(cfg.AppURL, f),
		})
	}
	tests = append(tests, runner.Test{
		Name: "check box home",
		Tags: []string{"ui", "smoke", "regression"},
		Body: checkBoxHome(cfg.AppURL),
	})
	return tests, nil
}

func textBoxForm(appURL string, f pages.Form) func(ctx context.Context, w *runner.Worker) error {
	page := pages.NewTextBox()
	return func(ctx context.Context, w *runner.Worker) error {
		a, err := w.UI(ctx)
		if err != nil {
			return err
		}
		if err := page.Open(ctx, a, appURL); err != nil {
			return err
		}
		if err := page.Fill(ctx, a, f); err != nil {
			return err
		}
		return page.Verify(ctx, a, f)
	}
}

func checkBoxHome(appURL string) func(ctx context.Context, w *runner.Worker) error {
	page := pages.NewCheckBox()
	return func(ctx context.Context, w *runner.Worker) error {
		a, err := w.UI(ctx)
		if err != nil {
			return err
		}
		if err := page.Open(ctx, a, appURL); err != nil {
			return err
		}
		if err := page.SelectHome(ctx, a); err != nil {
			return err
		}
		return page.Verify(ctx, a)
	}
}

func loadForms(ctx context.Context, source string) ([]pages.Form, error) {
	if source == "" {
		return DefaultForms, nil
	}
	src, err := data.Open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	rows, err := src.Table(ctx, FormTable)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", FormTable, err)
	}
	forms := make([]pages.Form, 0, len(rows))
	for _, r := range rows {
		text := func(col string) string { return builtin.Expand(r.String(col)) }
		forms = append(forms, pages.Form{
			FullName:         text("full_name"),
			Email:            text("email"),
			CurrentAddress:   text("current_address"),
			PermanentAddress: text("permanent_address"),
		})
	}
	if len(forms) == 0 {
		return nil, fmt.Errorf("data source %s has no rows in %s", source, FormTable)
	}
	return forms, nil
}
