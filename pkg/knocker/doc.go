/*
Package knocker implements the client side of port knocking: it plays a
sequence by attempting a short TCP connection to each port in order. The
connection attempts are expected to fail; the SYN is the message.
*/
package knocker
