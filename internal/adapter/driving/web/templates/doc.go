// Package templates holds the document layout and the form fragments shared
// by the pages.
package templates
