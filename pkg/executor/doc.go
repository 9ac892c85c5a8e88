/*
Package executor runs activation, deactivation, setup and teardown commands.

Commands are split into argv words with shellwords and executed directly,
without a shell, so metacharacters in substituted values cannot be
interpreted.
*/
package executor
