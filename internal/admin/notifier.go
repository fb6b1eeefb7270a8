package admin

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"hannu-storefront/internal/domain"

	"go.uber.org/zap"
)

// Op names an admin write
type Op string

const (
	OpLogin  Op = "login"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpUpload Op = "upload"
)

// Notification is the user-visible outcome of one admin write
type Notification struct {
	Op      Op     `json:"op"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Notifier announces the outcome of admin writes. Every write produces
// exactly one notification.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

var successMessages = map[Op]string{
	OpLogin:  "Sesión de administrador iniciada",
	OpCreate: "Producto creado exitosamente",
	OpUpdate: "Producto actualizado exitosamente",
	OpDelete: "Producto eliminado exitosamente",
	OpUpload: "Imágenes subidas",
}

var failurePrefixes = map[Op]string{
	OpLogin:  "Error de autenticación",
	OpCreate: "Error al crear producto",
	OpUpdate: "Error al actualizar producto",
	OpDelete: "Error al eliminar producto",
	OpUpload: "Error al subir imágenes",
}

// NotificationFor builds the notification for an operation outcome. Server
// failures carry the API's detail text when it sent one.
func NotificationFor(op Op, err error) Notification {
	if err == nil {
		return Notification{Op: op, Success: true, Message: successMessages[op]}
	}

	var (
		detail string
		se     *ServerError
		ve     *ValidationError
	)
	switch {
	case errors.As(err, &ve):
		detail = "faltan campos obligatorios o son inválidos"
		if len(ve.Fields) > 0 {
			detail = fmt.Sprintf("%s (%s)", detail, ve.FieldNames())
		}
	case errors.Is(err, ErrNoCredentials):
		detail = "credenciales de administrador no configuradas"
	case errors.As(err, &se) && se.Unauthorized() && se.Op != OpLogin:
		detail = "sesión expirada, vuelva a intentarlo"
	case errors.As(err, &se) && se.Detail != "":
		detail = se.Detail
	default:
		detail = err.Error()
	}
	return Notification{Op: op, Success: false, Message: failurePrefixes[op] + ": " + detail}
}

// UploadNotification is NotificationFor(OpUpload, err) with the success
// count appended when the upload went through.
func UploadNotification(report *domain.UploadReport, err error) Notification {
	note := NotificationFor(OpUpload, err)
	if err == nil && report != nil {
		note.Message = fmt.Sprintf("%s: %d de %d", note.Message, report.SuccessfulUploads, report.TotalFiles)
	}
	return note
}

// LogNotifier writes notifications to the structured log
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, note Notification) {
	fields := []zap.Field{zap.String("op", string(note.Op)), zap.String("message", note.Message)}
	if note.Success {
		n.logger.Info("Admin operation succeeded", fields...)
		return
	}
	n.logger.Warn("Admin operation failed", fields...)
}

// Recorder keeps every notification in order. It is used by front ends that
// show the outcome to the user after the call returns.
type Recorder struct {
	mu    sync.Mutex
	notes []Notification
	next  Notifier
}

// NewRecorder records notifications and forwards them to next when non-nil
func NewRecorder(next Notifier) *Recorder {
	return &Recorder{next: next}
}

func (r *Recorder) Notify(ctx context.Context, n Notification) {
	r.mu.Lock()
	r.notes = append(r.notes, n)
	r.mu.Unlock()
	if r.next != nil {
		r.next.Notify(ctx, n)
	}
}

func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.notes))
	copy(out, r.notes)
	return out
}

// Last returns the most recent notification
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notes) == 0 {
		return Notification{}, false
	}
	return r.notes[len(r.notes)-1], true
}
