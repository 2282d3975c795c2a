// Package webdriver speaks the W3C WebDriver protocol to local driver
// binaries (chromedriver, geckodriver, msedgedriver), Selenium Grid and
// Appium servers.
//
// A Session implements session.Resource, ui.Driver and ui.Screenshotter.
// Protocol error codes are mapped onto the ui sentinel errors at the point
// the response is decoded.
package webdriver
