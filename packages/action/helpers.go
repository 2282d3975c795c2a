package action

import (
	"context"

	"github.com/uv1406/harness/packages/ui"
)

// Actor binds an executor to one worker's driver.
type Actor struct {
	exec   *Executor
	driver ui.Driver
}

func (e *Executor) Bind(d ui.Driver) *Actor {
	return &Actor{exec: e, driver: d}
}

// Driver returns the bound driver.
func (a *Actor) Driver() ui.Driver { return a.driver }

func (a *Actor) Click(ctx context.Context, target ui.Locator) error {
	_, err := a.exec.Execute(ctx, a.driver, Request{Target: target, Op: Click})
	return err
}

func (a *Actor) Type(ctx context.Context, target ui.Locator, text string) error {
	_, err := a.exec.Execute(ctx, a.driver, Request{Target: target, Op: Type, Text: text})
	return err
}

func (a *Actor) Text(ctx context.Context, target ui.Locator) (string, error) {
	res, err := a.exec.Execute(ctx, a.driver, Request{Target: target, Op: ReadText})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func (a *Actor) ScrollTo(ctx context.Context, target ui.Locator) error {
	_, err := a.exec.Execute(ctx, a.driver, Request{Target: target, Op: Scroll})
	return err
}

func (a *Actor) Select(ctx context.Context, target ui.Locator) error {
	_, err := a.exec.Execute(ctx, a.driver, Request{Target: target, Op: Select})
	return err
}

func (a *Actor) Open(ctx context.Context, url string) error {
	return a.driver.Navigate(ctx, url)
}
