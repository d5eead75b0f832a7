// Package confgen renders backend configuration text from a disk role
// assignment: the snapraid configuration file, boot-time fstab entries, and
// Samba share definitions. Every generator is a pure function and produces
// byte-identical output for identical input; writing the rendered text to
// disk is the caller's job.
package confgen
