package pdfdesk

import "errors"

var (
	// ErrInvalidInput is returned for missing or malformed tool input.
	ErrInvalidInput = errors.New("pdfdesk: invalid input")

	// ErrUnsupportedFormat is returned for unknown output formats and
	// unsupported upload types.
	ErrUnsupportedFormat = errors.New("pdfdesk: unsupported format")

	// ErrPasswordRequired is returned when an encrypted PDF is uploaded
	// without a password.
	ErrPasswordRequired = errors.New("pdfdesk: document is password protected")

	// ErrWrongPassword is returned when the supplied password does not open
	// the document.
	ErrWrongPassword = errors.New("pdfdesk: incorrect password")

	// ErrConversionFailed is returned when a tool fails on otherwise valid
	// input.
	ErrConversionFailed = errors.New("pdfdesk: conversion failed")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("pdfdesk: invalid configuration")

	// ErrNotFound is returned when a conversion ID does not exist.
	ErrNotFound = errors.New("pdfdesk: conversion not found")

	// ErrStoreDisabled is returned by log queries when the engine runs
	// without a store.
	ErrStoreDisabled = errors.New("pdfdesk: conversion log is disabled")
)
