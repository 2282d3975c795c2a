package pages

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uv1406/harness/packages/action"
	"github.com/uv1406/harness/packages/logging"
	"github.com/uv1406/harness/packages/ui/uitest"
)

func newActor(b *uitest.Browser) *action.Actor {
	exec := action.NewExecutor(
		action.WithDefaultTimeout(200*time.Millisecond),
		action.WithPollInterval(5*time.Millisecond),
		action.WithLogger(logging.Discard()))
	return exec.Bind(b)
}

func textBoxBrowser(p TextBox) *uitest.Browser {
	b := uitest.NewBrowser("b1")
	name := b.Add(p.FullName, nil)
	mail := b.Add(p.Email, nil)
	b.Add(p.CurrentAddress, nil)
	b.Add(p.PermanentAddress, nil)
	out := b.Add(p.Output, nil)
	b.Add(p.Submit, &uitest.Element{OnClick: func() {
		out.SetText(fmt.Sprintf("Name:%s\nEmail:%s", name.Value(), mail.Value()))
	}})
	return b
}

func TestTextBox_FillAndVerify(t *testing.T) {
	ctx := context.Background()
	p := NewTextBox()
	b := textBoxBrowser(p)
	a := newActor(b)

	form := Form{FullName: "Ada Lovelace", Email: "ada@example.com", CurrentAddress: "London"}
	require.NoError(t, p.Open(ctx, a, "https://demoqa.com/"))
	require.NoError(t, p.Fill(ctx, a, form))
	require.NoError(t, p.Verify(ctx, a, form))

	assert.Equal(t, "https://demoqa.com/text-box", b.URL())
	assert.Equal(t, "London", b.Element(p.CurrentAddress).Value())
	assert.Empty(t, b.Element(p.PermanentAddress).Value())
	assert.Equal(t, 1, b.Element(p.Submit).Clicks())
}

func TestTextBox_VerifyMismatch(t *testing.T) {
	ctx := context.Background()
	p := NewTextBox()
	b := textBoxBrowser(p)
	a := newActor(b)

	require.NoError(t, p.Fill(ctx, a, Form{FullName: "Ada"}))
	err := p.Verify(ctx, a, Form{FullName: "Grace"})
	assert.ErrorContains(t, err, "does not contain")
}

func TestTextBox_MissingField(t *testing.T) {
	p := NewTextBox()
	b := uitest.NewBrowser("b1")
	a := newActor(b)

	err := p.Fill(context.Background(), a, Form{FullName: "Ada"})
	assert.ErrorIs(t, err, action.ErrTargetNotFound)
}

func TestCheckBox_SelectHome(t *testing.T) {
	ctx := context.Background()
	p := NewCheckBox()
	b := uitest.NewBrowser("b1")
	result := b.Add(p.Result, nil)
	b.Add(p.Home, &uitest.Element{OnClick: func() { result.SetText("You have selected :\nhome") }})
	a := newActor(b)

	require.NoError(t, p.Open(ctx, a, "https://demoqa.com"))
	require.NoError(t, p.SelectHome(ctx, a))
	require.NoError(t, p.Verify(ctx, a))

	assert.Equal(t, "https://demoqa.com/checkbox", b.URL())
	assert.Equal(t, 1, b.Element(p.Home).Clicks())

	require.NoError(t, p.SelectHome(ctx, a))
	assert.Equal(t, 1, b.Element(p.Home).Clicks(), "already selected")
}

func TestCheckBox_VerifyNothingSelected(t *testing.T) {
	p := NewCheckBox()
	b := uitest.NewBrowser("b1")
	b.Add(p.Result, nil)
	a := newActor(b)

	assert.Error(t, p.Verify(context.Background(), a))
}
