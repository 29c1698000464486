package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// ErrSuscripcionExpirada señala que el proveedor reportó el endpoint como
// inexistente: el dispositivo dejó de existir y la fila debe eliminarse.
var ErrSuscripcionExpirada = errors.New("suscripción expirada")

// Sender entrega un payload a una suscripción concreta.
type Sender interface {
	Enviar(ctx context.Context, sub Suscripcion, payload Payload) error
}

// WebPushSender entrega mensajes Web Push firmados con VAPID.
type WebPushSender struct {
	opciones webpush.Options
}

// NewWebPushSender configura el emisor con el par de claves VAPID y el
// contacto del emisor (mailto: o https:).
func NewWebPushSender(publicKey, privateKey, subject string) *WebPushSender {
	return &WebPushSender{
		opciones: webpush.Options{
			Subscriber:      subject,
			VAPIDPublicKey:  publicKey,
			VAPIDPrivateKey: privateKey,
			TTL:             60,
			HTTPClient:      &http.Client{Timeout: 10 * time.Second},
		},
	}
}

// Enviar empuja el payload al endpoint. Un 404/410 del proveedor se clasifica
// como ErrSuscripcionExpirada; cualquier otro estado >= 400 es un error
// transitorio sin limpieza.
func (w *WebPushSender) Enviar(ctx context.Context, sub Suscripcion, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	destino := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}

	opciones := w.opciones
	resp, err := webpush.SendNotificationWithContext(ctx, body, destino, &opciones)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrSuscripcionExpirada
	case resp.StatusCode >= 400:
		return fmt.Errorf("push rechazado: estado %d", resp.StatusCode)
	}
	return nil
}
