// Package transform implements the column transformations of the credit-risk
// feature pipeline.
//
// Every transformation is a pure function of a table and a configuration value:
//
//	Select     keep a subset of columns in their original order
//	Discretize bin a numeric column into a new labelled categorical column
//	Impute     replace missing categorical values with a sentinel category
//	Encode     one-hot encode categorical columns into 1/0 indicator columns
//	Rename     rename columns through an injective map
//
// None of them edit their input. Role bookkeeping (which columns are numeric and
// which are categorical) is carried by the immutable Roles value and updated by the
// pipeline package between stages.
//
// Failures are reported as *Error values whose Kind can be tested with errors.Is
// against the Err* sentinels.
package transform
