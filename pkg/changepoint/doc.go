// Package changepoint holds the types shared by the change point search
// engine: the immutable Signal, half-open Segments over it, breakpoint list
// helpers, and the error taxonomy.
//
// A breakpoint list is strictly increasing and always ends with the series
// length T. A list holding only T means no change point was found.
package changepoint
