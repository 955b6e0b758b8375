// Package mailer delivers synthesis emails over SMTP using go-mail.
// Messages carry multipart alternative bodies (plain text plus HTML) and are
// sent with mandatory STARTTLS. Authentication failures surface immediately;
// transient failures are retried with exponential backoff.
package mailer
