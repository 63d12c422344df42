// Package postprocess converts and stages rendered frames.
//
// Every batch operation is sequential and processes files in name order.
// Output files keep the input file name. A file that fails to convert does
// not stop the batch: the failure is recorded and the remaining files are
// still processed.
package postprocess
