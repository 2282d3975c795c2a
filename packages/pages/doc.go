// Package pages describes the pages exercised by the bundled UI suite.
// A page holds locators and composes actions through an action.Actor; it
// never holds a driver.
package pages
