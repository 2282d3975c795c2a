package ui

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecoverable(t *testing.T) {
	assert.True(t, Recoverable(ErrIntercepted))
	assert.True(t, Recoverable(fmt.Errorf("click: %w", ErrStale)))
	assert.True(t, Recoverable(ErrNotInteractable))
	assert.False(t, Recoverable(ErrNoSuchElement))
	assert.False(t, Recoverable(ErrTimeout))
	assert.False(t, Recoverable(errors.New("connection reset")))
	assert.False(t, Recoverable(nil))
}

func TestLocators(t *testing.T) {
	tests := []struct {
		name string
		got  Locator
		want Locator
	}{
		{"id", ByID("userName"), Locator{CSS, "#userName"}},
		{"id with colon", ByID("form:email"), Locator{CSS, `#form\:email`}},
		{"id leading digit", ByID("1st"), Locator{CSS, `#\31 st`}},
		{"name", ByName("q"), Locator{CSS, `[name="q"]`}},
		{"css", ByCSS(".rct-title"), Locator{CSS, ".rct-title"}},
		{"xpath", ByXPath("//button"), Locator{XPath, "//button"}},
		{"accessibility", ByAccessibilityID("login"), Locator{AccessibilityID, "login"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestLocator_String(t *testing.T) {
	assert.Equal(t, "css selector=#submit", ByID("submit").String())
}
