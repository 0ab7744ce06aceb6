package publisher

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/yuin/goldmark"

	"github.com/ryosukesatoh/book-newsletter/internal/logging"
)

const appPasswordHint = "Possible issues: incorrect address or password, or an App Password is required. " +
	"For Gmail with 2FA, generate an App Password: https://support.google.com/accounts/answer/185833"

// Transport sends one already-formatted message to one recipient.
type Transport interface {
	Send(ctx context.Context, from, to string, msg []byte) error
}

// SMTPSTransport opens an implicit-TLS SMTP session (port 465), logs in
// once, sends, and quits.
type SMTPSTransport struct {
	host      string
	port      int
	username  string
	password  string
	tlsConfig *tls.Config
}

func NewSMTPSTransport(host string, port int, username, password string) *SMTPSTransport {
	return &SMTPSTransport{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		tlsConfig: &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12},
	}
}

func (t *SMTPSTransport) Send(ctx context.Context, from, to string, msg []byte) error {
	addr := net.JoinHostPort(t.host, strconv.Itoa(t.port))
	dialer := &tls.Dialer{Config: t.tlsConfig}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp: failed to connect to %s: %w", addr, err)
	}

	c, err := smtp.NewClient(conn, t.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp: failed to start session: %w", err)
	}
	defer c.Close()

	if err := c.Auth(smtp.PlainAuth("", t.username, t.password, t.host)); err != nil {
		return fmt.Errorf("smtp: authentication failed: %w", err)
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("smtp: MAIL FROM rejected: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("smtp: RCPT TO rejected: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp: DATA rejected: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp: failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp: message rejected: %w", err)
	}
	return c.Quit()
}

// EmailPublisher sends the newsletter to a single recipient.
type EmailPublisher struct {
	from      string
	password  string
	to        string
	html      bool
	transport Transport
	logger    *log.Logger
	now       func() time.Time
}

func NewEmailPublisher(from, password, to string, html bool, transport Transport, logger *log.Logger) *EmailPublisher {
	return &EmailPublisher{
		from:      from,
		password:  password,
		to:        to,
		html:      html,
		transport: transport,
		logger:    logging.OrDiscard(logger),
		now:       time.Now,
	}
}

// Publish returns ErrNotConfigured without touching the transport when the
// sender address, credential, or recipient is missing.
func (p *EmailPublisher) Publish(ctx context.Context, e *Edition) error {
	if p.from == "" || p.password == "" {
		p.logger.Warn("Email sender credentials not set. Skipping email.",
			"hint", "set SENDER_EMAIL and SENDER_PASSWORD in the environment or .env file")
		return fmt.Errorf("%w: sender address or password missing", ErrNotConfigured)
	}
	if p.to == "" {
		p.logger.Warn("Email recipient not set. Skipping email.", "hint", "set email.to or RECIPIENT_EMAIL")
		return fmt.Errorf("%w: recipient missing", ErrNotConfigured)
	}

	msg, err := p.buildMessage(e)
	if err != nil {
		return err
	}

	if err := p.transport.Send(ctx, p.from, p.to, msg); err != nil {
		p.logger.Error("Error sending email", "to", p.to, "err", err)
		p.logger.Warn(appPasswordHint)
		return fmt.Errorf("email: failed to send: %w", err)
	}

	p.logger.Info("Newsletter email sent successfully", "to", p.to)
	return nil
}

func (p *EmailPublisher) buildMessage(e *Edition) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := writeQPPart(mw, "text/plain; charset=UTF-8", []byte(e.Body)); err != nil {
		return nil, err
	}
	subtype := "mixed"
	if p.html {
		var html bytes.Buffer
		if err := goldmark.Convert([]byte(e.Body), &html); err != nil {
			return nil, fmt.Errorf("email: failed to render HTML: %w", err)
		}
		if err := writeQPPart(mw, "text/html; charset=UTF-8", html.Bytes()); err != nil {
			return nil, err
		}
		subtype = "alternative"
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("email: failed to finish message: %w", err)
	}

	runID := e.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	var msg bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&msg, "%s: %s\r\n", k, v) }
	header("From", p.from)
	header("To", p.to)
	header("Subject", mime.QEncoding.Encode("utf-8", e.Subject))
	header("Date", p.now().Format(time.RFC1123Z))
	header("Message-ID", fmt.Sprintf("<%s@%s>", runID, domainOf(p.from)))
	header("MIME-Version", "1.0")
	header("Content-Type", fmt.Sprintf("multipart/%s; boundary=%q", subtype, mw.Boundary()))
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())

	return msg.Bytes(), nil
}

func writeQPPart(mw *multipart.Writer, contentType string, data []byte) error {
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", contentType)
	h.Set("Content-Transfer-Encoding", "quoted-printable")

	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("email: failed to create part: %w", err)
	}
	qp := quotedprintable.NewWriter(part)
	if _, err := qp.Write(data); err != nil {
		return fmt.Errorf("email: failed to encode part: %w", err)
	}
	return qp.Close()
}

func domainOf(addr string) string {
	if i := strings.LastIndex(addr, "@"); i >= 0 && i < len(addr)-1 {
		return addr[i+1:]
	}
	return "localhost"
}
