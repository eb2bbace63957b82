// Package stockbot contains the stock command parser and the background
// worker that resolves queued stock requests against the quote provider.
package stockbot
