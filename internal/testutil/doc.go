// Package testutil contains helper builders, mocks and fakes used across
// tests to reduce boilerplate when constructing execution contexts and
// handlers. They are not intended for production usage.
package testutil
