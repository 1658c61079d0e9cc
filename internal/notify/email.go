package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/smtp"

	"cinebook/internal/config"
	"cinebook/internal/logger"
	"cinebook/internal/models"
	"cinebook/internal/qr"
)

// BookingReader is the slice of the booking store the mailer needs.
type BookingReader interface {
	GetBookingByID(ctx context.Context, bookingID string) (*models.Booking, error)
}

// Mailer sends the booking confirmation email with the QR ticket inlined.
type Mailer struct {
	cfg      config.EmailConfig
	bookings BookingReader
	qr       *qr.Generator
	logger   *logger.Logger

	// send is swappable in tests; defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailer(cfg config.EmailConfig, bookings BookingReader, generator *qr.Generator, log *logger.Logger) *Mailer {
	return &Mailer{
		cfg:      cfg,
		bookings: bookings,
		qr:       generator,
		logger:   log,
		send:     smtp.SendMail,
	}
}

// SendConfirmation builds and sends the confirmation email for a paid
// booking. The recipient comes from the OIDC email claim captured at
// booking time.
func (m *Mailer) SendConfirmation(ctx context.Context, bookingID string) error {
	booking, err := m.bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("fetch booking %s: %w", bookingID, err)
	}

	if booking.UserEmail == "" {
		m.logger.Warn("EMAIL", fmt.Sprintf("Booking %s has no user email, skipping confirmation", bookingID))
		return nil
	}

	qrPNG, err := m.qr.EncodePNG(booking.QRPayload)
	if err != nil {
		return fmt.Errorf("render ticket QR: %w", err)
	}

	movieTitle := "your movie"
	showTime := ""
	if booking.Show != nil {
		showTime = booking.Show.ShowDateTime.Format("Mon, 2 Jan 2006 15:04")
		if booking.Show.Movie != nil {
			movieTitle = booking.Show.Movie.Title
		}
	}

	msg := buildMessage(m.cfg.From, booking.UserEmail,
		fmt.Sprintf("Your tickets for %s", movieTitle),
		fmt.Sprintf(`<h2>Booking confirmed 🎬</h2>
<p>Your payment for <b>%s</b> went through.</p>
<p>Showtime: %s<br>Seats: %v<br>Amount: %.2f</p>
<p>Show this QR code at the entrance:</p>
<img src="cid:ticket-qr" alt="ticket qr"/>`,
			movieTitle, showTime, booking.BookedSeats, booking.Amount),
		qrPNG)

	addr := m.cfg.SMTPHost + ":" + m.cfg.SMTPPort
	auth := smtp.PlainAuth("", m.cfg.SMTPUsername, m.cfg.SMTPPassword, m.cfg.SMTPHost)
	if err := m.send(addr, auth, m.cfg.From, []string{booking.UserEmail}, msg); err != nil {
		return fmt.Errorf("send confirmation email: %w", err)
	}

	m.logger.Info("EMAIL", fmt.Sprintf("Confirmation sent for booking %s to %s", bookingID, booking.UserEmail))
	return nil
}

// buildMessage assembles a multipart/related message with the QR PNG
// referenced inline via Content-ID.
func buildMessage(from, to, subject, htmlBody string, qrPNG []byte) []byte {
	const boundary = "cinebook-ticket-boundary"

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/related; boundary=%q\r\n\r\n", boundary)

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	buf.WriteString(htmlBody)
	buf.WriteString("\r\n")

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: image/png\r\n")
	buf.WriteString("Content-Transfer-Encoding: base64\r\n")
	buf.WriteString("Content-ID: <ticket-qr>\r\n\r\n")

	encoded := base64.StdEncoding.EncodeToString(qrPNG)
	// RFC 2045 line length cap
	for len(encoded) > 76 {
		buf.WriteString(encoded[:76])
		buf.WriteString("\r\n")
		encoded = encoded[76:]
	}
	buf.WriteString(encoded)
	buf.WriteString("\r\n")

	fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	return buf.Bytes()
}
