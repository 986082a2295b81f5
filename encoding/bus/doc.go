// Package bus implements reading and writing of BUS
// (Barcode/UMI/Set) files, the binary format produced by kallisto-bus
// style single-cell RNA pipelines.  A BUS file is a fixed-size header
// followed by a flat sequence of 32-byte records, each holding a cell
// barcode, a UMI, an equivalence-class ID, a read count and a flag
// word.  Barcodes and UMIs are stored 2-bit encoded; SeqToInt and
// IntToSeq convert between the string and integer forms.
//
// The package also provides GroupScanner, which turns a sorted record
// stream into a sequence of (CB,UMI)- or CB-keyed record groups.  Group
// streams are the inputs of the k-way merge in package merge and of the
// external sorter in package sorter.
package bus
