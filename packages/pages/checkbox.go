package pages

import (
	"context"
	"fmt"
	"strings"

	"github.com/uv1406/harness/packages/action"
	"github.com/uv1406/harness/packages/ui"
)

// CheckBox is the tree of check boxes rooted at "Home".
type CheckBox struct {
	Path   string
	Home   ui.Locator
	Result ui.Locator
}

func NewCheckBox() CheckBox {
	return CheckBox{
		Path:   "/checkbox",
		Home:   ui.ByCSS("label[for='tree-node-home'] .rct-checkbox"),
		Result: ui.ByID("result"),
	}
}

func (p CheckBox) Open(ctx context.Context, a *action.Actor, baseURL string) error {
	return a.Open(ctx, join(baseURL, p.Path))
}

// SelectHome ticks the root node. The input itself is hidden behind a
// styled span, so the span is the target.
func (p CheckBox) SelectHome(ctx context.Context, a *action.Actor) error {
	return a.Select(ctx, p.Home)
}

// Verify checks that the result panel reports a selection.
func (p CheckBox) Verify(ctx context.Context, a *action.Actor) error {
	out, err := a.Text(ctx, p.Result)
	if err != nil {
		return err
	}
	if !strings.Contains(strings.ToLower(out), "selected") {
		return fmt.Errorf("result %q does not report a selection", out)
	}
	return nil
}
