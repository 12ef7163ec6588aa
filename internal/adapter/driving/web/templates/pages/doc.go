// Package pages contains the full-page templ components.
package pages
