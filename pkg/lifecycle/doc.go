/*
Package lifecycle runs the one-shot setup and teardown commands configured
on rules, at daemon start and shutdown respectively.
*/
package lifecycle
