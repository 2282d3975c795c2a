package pages

import (
	"context"
	"fmt"
	"strings"

	"github.com/uv1406/harness/packages/action"
	"github.com/uv1406/harness/packages/ui"
)

// TextBox is the form with name, email and address fields.
type TextBox struct {
	Path             string
	FullName         ui.Locator
	Email            ui.Locator
	CurrentAddress   ui.Locator
	PermanentAddress ui.Locator
	Submit           ui.Locator
	Output           ui.Locator
}

func NewTextBox() TextBox {
	return TextBox{
		Path:             "/text-box",
		FullName:         ui.ByID("userName"),
		Email:            ui.ByID("userEmail"),
		CurrentAddress:   ui.ByID("currentAddress"),
		PermanentAddress: ui.ByID("permanentAddress"),
		Submit:           ui.ByID("submit"),
		Output:           ui.ByID("output"),
	}
}

// Form is one submission of the text box page.
type Form struct {
	FullName         string
	Email            string
	CurrentAddress   string
	PermanentAddress string
}

func (p TextBox) Open(ctx context.Context, a *action.Actor, baseURL string) error {
	return a.Open(ctx, join(baseURL, p.Path))
}

// Fill types every non-empty field and submits the form.
func (p TextBox) Fill(ctx context.Context, a *action.Actor, f Form) error {
	fields := []struct {
		target ui.Locator
		value  string
	}{
		{p.FullName, f.FullName},
		{p.Email, f.Email},
		{p.CurrentAddress, f.CurrentAddress},
		{p.PermanentAddress, f.PermanentAddress},
	}
	for _, field := range fields {
		if field.value == "" {
			continue
		}
		if err := a.Type(ctx, field.target, field.value); err != nil {
			return err
		}
	}
	return a.Click(ctx, p.Submit)
}

// Result reads the submitted summary.
func (p TextBox) Result(ctx context.Context, a *action.Actor) (string, error) {
	return a.Text(ctx, p.Output)
}

// Verify checks that the summary echoes the name and email.
func (p TextBox) Verify(ctx context.Context, a *action.Actor, f Form) error {
	out, err := p.Result(ctx, a)
	if err != nil {
		return err
	}
	for _, want := range []string{f.FullName, f.Email} {
		if want != "" && !strings.Contains(out, want) {
			return fmt.Errorf("output %q does not contain %q", out, want)
		}
	}
	return nil
}

func join(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
