package action

import (
	"context"
	"fmt"

	"github.com/uv1406/harness/packages/ui"
)

const (
	scriptScrollIntoView = `arguments[0].scrollIntoView({block: 'center', inline: 'nearest'});`
	scriptClick          = `arguments[0].click();`
	scriptSetValue       = `var el = arguments[0];
el.value = arguments[1];
el.dispatchEvent(new Event('input', {bubbles: true}));
el.dispatchEvent(new Event('change', {bubbles: true}));`
	scriptText   = `return arguments[0].textContent;`
	scriptSelect = `var el = arguments[0];
if ('checked' in el) { if (!el.checked) { el.click(); } }
else if ('selected' in el && !el.selected) {
  el.selected = true;
  el.dispatchEvent(new Event('change', {bubbles: true}));
}`
)

// fallback re-resolves the target once and performs req through scripts.
func fallback(ctx context.Context, d ui.Driver, req Request) (string, error) {
	el, err := d.Find(ctx, req.Target)
	if err != nil {
		return "", fmt.Errorf("re-resolve: %w", err)
	}
	if _, err := d.Execute(ctx, scriptScrollIntoView, el); err != nil {
		return "", fmt.Errorf("scroll into view: %w", err)
	}

	switch req.Op {
	case Click:
		_, err = d.Execute(ctx, scriptClick, el)
	case Type:
		_, err = d.Execute(ctx, scriptSetValue, el, req.Text)
	case ReadText:
		out, err := d.Execute(ctx, scriptText, el)
		if err != nil {
			return "", err
		}
		s, _ := out.(string)
		return s, nil
	case Select:
		_, err = d.Execute(ctx, scriptSelect, el)
	case Scroll:
	default:
		err = fmt.Errorf("unsupported operation %s", req.Op)
	}
	return "", err
}
