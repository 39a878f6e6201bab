// Package labextract pulls numeric lab values out of noisy OCR text.
//
// Each expected label is located in the text, exactly when possible and
// otherwise by tolerating a single-character OCR error, and the first number
// following it is returned with its decimal separator normalised to ".".
// Everything in this package is pure and safe for concurrent use.
package labextract
