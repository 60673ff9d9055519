package requests

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"sst-backend/document/stamp"
	"sst-backend/internal/notifications"
	"sst-backend/internal/shared/auth"
	"sst-backend/internal/shared/metrics"
	"sst-backend/internal/shared/storage/object"
	"sst-backend/internal/shared/telemetry"
	"sst-backend/internal/uploads"
)

const (
	listLimit   = 200
	signerTitle = "Aprobado por"
)

// Notifier is the part of notifications.Service the workflow needs.
type Notifier interface {
	Notify(ctx context.Context, target notifications.Target, title, message, route string)
}

// Service runs the request state machine: pending to approved or rejected.
type Service struct {
	Repo         Repo
	Intake       *uploads.Intake
	Stamper      *stamp.Stamper
	Notifier     Notifier
	ApproverRole string
	Now          func() time.Time
}

func NewService(repo Repo, intake *uploads.Intake, stamper *stamp.Stamper, notifier Notifier, approverRole string) *Service {
	if stamper == nil {
		stamper = stamp.New(stamp.Options{})
	}
	return &Service{
		Repo:         repo,
		Intake:       intake,
		Stamper:      stamper,
		Notifier:     notifier,
		ApproverRole: approverRole,
		Now:          func() time.Time { return time.Now().UTC() },
	}
}

// CreateInput carries a new request. At most one of Upload and DocumentPath
// is set: Upload is a freshly stored file, DocumentPath references a document
// the system rendered earlier.
type CreateInput struct {
	Type         string
	Message      string
	Upload       *uploads.File
	DocumentPath string
}

// RespondInput carries an approver's decision.
type RespondInput struct {
	RequestID int64
	Decision  string
	Comment   string
	Signature *uploads.File
}

// Create records a pending request and alerts the approver role.
func (s *Service) Create(ctx context.Context, id auth.Identity, in CreateInput) (Request, error) {
	req, err := s.create(ctx, id, in)
	if err != nil {
		s.Intake.Discard(ctx, in.Upload)
		return Request{}, err
	}
	metrics.IncTransition(string(StatusPending))
	telemetry.Info("requests.created", map[string]any{
		"request_id":   req.ID,
		"requester_id": req.RequesterID,
		"type":         req.Type,
		"has_original": req.OriginalDocumentPath != nil,
	})

	s.notify(ctx, notifications.ToRole(s.ApproverRole),
		"Nueva solicitud: "+req.Type,
		fmt.Sprintf("%s envió una solicitud de %s.", req.RequesterName, req.Type),
		req)
	return req, nil
}

func (s *Service) create(ctx context.Context, id auth.Identity, in CreateInput) (Request, error) {
	if strings.TrimSpace(id.UserID) == "" {
		return Request{}, fmt.Errorf("%w: requester is required", ErrInvalidInput)
	}
	in.Type = strings.TrimSpace(in.Type)
	in.Message = strings.TrimSpace(in.Message)
	in.DocumentPath = strings.TrimSpace(in.DocumentPath)
	if in.Type == "" {
		return Request{}, fmt.Errorf("%w: type is required", ErrInvalidInput)
	}
	if in.Upload != nil && in.DocumentPath != "" {
		return Request{}, fmt.Errorf("%w: send either a file or a documentPath, not both", ErrInvalidInput)
	}

	req := Request{
		RequesterID:   id.UserID,
		RequesterName: firstNonEmpty(id.Name, id.Email, id.UserID),
		RequesterRole: id.Role,
		Type:          in.Type,
		Message:       in.Message,
		Status:        StatusPending,
		CreatedAt:     s.now(),
	}
	switch {
	case in.Upload != nil:
		key := in.Upload.Key
		req.OriginalDocumentPath = &key
	case in.DocumentPath != "":
		key, err := s.renderedDocument(ctx, in.DocumentPath)
		if err != nil {
			return Request{}, err
		}
		req.OriginalDocumentPath = &key
	}
	return s.Repo.Create(ctx, req)
}

// renderedDocument checks that key names an existing generated document.
func (s *Service) renderedDocument(ctx context.Context, key string) (string, error) {
	clean := path.Clean(strings.TrimPrefix(key, "/"))
	if !strings.HasPrefix(clean, uploads.NamespaceRendered+"/") {
		return "", fmt.Errorf("%w: documentPath must reference a generated document", ErrInvalidInput)
	}
	body, err := s.Intake.Store.Open(ctx, clean)
	if errors.Is(err, object.ErrNotFound) {
		return "", fmt.Errorf("%w: document %q does not exist", ErrInvalidInput, clean)
	}
	if err != nil {
		return "", fmt.Errorf("open document: %w", err)
	}
	body.Close()
	return clean, nil
}

// Respond applies an approver's decision. When an approved request has an
// original document and a signature is supplied, the signed copy is produced
// before anything is persisted; a stamping failure leaves the request pending.
// The temporary signature upload is always discarded.
func (s *Service) Respond(ctx context.Context, id auth.Identity, in RespondInput) (Request, error) {
	defer s.Intake.Discard(ctx, in.Signature)

	if !s.isApprover(id) {
		return Request{}, ErrForbidden
	}
	decision, ok := ParseDecision(in.Decision)
	if !ok {
		return Request{}, fmt.Errorf("%w: decision must be approved or rejected", ErrInvalidInput)
	}
	req, err := s.Repo.GetByID(ctx, in.RequestID)
	if err != nil {
		return Request{}, err
	}
	if req.Status != StatusPending {
		return Request{}, ErrNotPending
	}

	d := Decision{
		Status:      decision,
		ReviewerID:  id.UserID,
		RespondedAt: s.now(),
	}
	if comment := strings.TrimSpace(in.Comment); comment != "" {
		d.Comment = &comment
	}

	if decision == StatusApproved && req.OriginalDocumentPath != nil {
		if in.Signature == nil {
			telemetry.Info("requests.approved_unsigned", map[string]any{"request_id": req.ID, "reviewer_id": id.UserID})
		} else {
			key, err := s.sign(ctx, req, in.Signature, id, d.RespondedAt)
			if err != nil {
				return Request{}, err
			}
			d.SignedDocumentPath = &key
		}
	}

	saved, err := s.Repo.Decide(ctx, req.ID, req.Version, d)
	if err != nil {
		if d.SignedDocumentPath != nil {
			s.Intake.Discard(ctx, &uploads.File{Key: *d.SignedDocumentPath})
		}
		if errors.Is(err, ErrConflict) {
			telemetry.Warn("requests.respond_conflict", map[string]any{"request_id": req.ID, "reviewer_id": id.UserID})
		}
		return Request{}, err
	}

	metrics.IncTransition(string(saved.Status))
	telemetry.Info("requests.responded", map[string]any{
		"request_id":        saved.ID,
		"reviewer_id":       id.UserID,
		"status_transition": string(StatusPending) + "->" + string(saved.Status),
		"signed":            saved.SignedDocumentPath != nil,
	})

	message := "Su solicitud fue rechazada."
	if saved.Status == StatusApproved {
		message = "Su solicitud fue aprobada."
	}
	if saved.ReviewerComment != nil {
		message += " Comentario: " + *saved.ReviewerComment
	}
	s.notify(ctx, notifications.ToUser(saved.RequesterID), saved.Type+" "+saved.Status.Label(), message, saved)
	return saved, nil
}

// sign stamps the signature onto the original and stores the result under a
// new key.
func (s *Service) sign(ctx context.Context, req Request, signature *uploads.File, id auth.Identity, at time.Time) (string, error) {
	original, err := object.ReadAll(ctx, s.Intake.Store, *req.OriginalDocumentPath)
	if err != nil {
		return "", fmt.Errorf("read original document: %w", err)
	}
	image, err := s.Intake.Read(ctx, signature)
	if err != nil {
		return "", fmt.Errorf("read signature: %w", err)
	}

	signed, err := s.Stamper.Stamp(ctx, original, image, stamp.Signer{
		Name:     firstNonEmpty(id.Name, id.Email, id.UserID),
		Title:    signerTitle,
		SignedAt: at,
	})
	metrics.IncStamp(err)
	if err != nil {
		telemetry.Warn("requests.stamp_failed", map[string]any{"request_id": req.ID, "error": err})
		return "", fmt.Errorf("%w: %w", ErrStampFailed, err)
	}

	// The stamped copy is always larger than the original, so it goes straight
	// to the store instead of through the user upload size cap.
	key, _, _, err := s.Intake.Store.Save(ctx, uploads.NamespaceSigned, signedName(*req.OriginalDocumentPath), bytes.NewReader(signed))
	if err != nil {
		return "", fmt.Errorf("store signed document: %w", err)
	}
	return key, nil
}

// ReplaceSignedDocument lets an approver set or replace the signed copy of an
// approved request without touching its status.
func (s *Service) ReplaceSignedDocument(ctx context.Context, id auth.Identity, requestID int64, file *uploads.File) (Request, error) {
	saved, previous, err := s.replaceSigned(ctx, id, requestID, file)
	if err != nil {
		s.Intake.Discard(ctx, file)
		return Request{}, err
	}
	if previous != nil && *previous != file.Key {
		s.Intake.Discard(ctx, &uploads.File{Key: *previous})
	}
	telemetry.Info("requests.signed_document_replaced", map[string]any{
		"request_id":  saved.ID,
		"reviewer_id": id.UserID,
		"key":         file.Key,
	})
	s.notify(ctx, notifications.ToUser(saved.RequesterID),
		saved.Type+" actualizado",
		"El documento firmado de su solicitud fue actualizado.",
		saved)
	return saved, nil
}

func (s *Service) replaceSigned(ctx context.Context, id auth.Identity, requestID int64, file *uploads.File) (Request, *string, error) {
	if !s.isApprover(id) {
		return Request{}, nil, ErrForbidden
	}
	if file == nil {
		return Request{}, nil, fmt.Errorf("%w: file is required", ErrInvalidInput)
	}
	req, err := s.Repo.GetByID(ctx, requestID)
	if err != nil {
		return Request{}, nil, err
	}
	if req.Status != StatusApproved || req.OriginalDocumentPath == nil {
		return Request{}, nil, ErrNotSignable
	}
	saved, err := s.Repo.SetSignedDocument(ctx, req.ID, req.Version, file.Key)
	if err != nil {
		return Request{}, nil, err
	}
	return saved, req.SignedDocumentPath, nil
}

// List returns the caller's own requests, or every request for approvers.
func (s *Service) List(ctx context.Context, id auth.Identity, status Status) ([]Request, error) {
	filter := ListFilter{Status: status, Limit: listLimit}
	if !s.isApprover(id) {
		filter.RequesterID = id.UserID
	}
	items, err := s.Repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Request{}
	}
	return items, nil
}

// Get returns one request visible to the caller.
func (s *Service) Get(ctx context.Context, id auth.Identity, requestID int64) (Request, error) {
	req, err := s.Repo.GetByID(ctx, requestID)
	if err != nil {
		return Request{}, err
	}
	if req.RequesterID != id.UserID && !s.isApprover(id) {
		return Request{}, ErrForbidden
	}
	return req, nil
}

// OpenDocument streams the original or signed attachment of a request.
func (s *Service) OpenDocument(ctx context.Context, id auth.Identity, requestID int64, signed bool) (io.ReadCloser, string, error) {
	req, err := s.Get(ctx, id, requestID)
	if err != nil {
		return nil, "", err
	}
	key := req.OriginalDocumentPath
	if signed {
		key = req.SignedDocumentPath
	}
	if key == nil {
		return nil, "", ErrNotFound
	}
	body, err := s.Intake.Store.Open(ctx, *key)
	if errors.Is(err, object.ErrNotFound) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	return body, path.Base(*key), nil
}

func (s *Service) isApprover(id auth.Identity) bool {
	return id.HasRole(s.ApproverRole)
}

func (s *Service) notify(ctx context.Context, target notifications.Target, title, message string, req Request) {
	if s.Notifier == nil {
		return
	}
	s.Notifier.Notify(ctx, target, title, message, "/requests/"+strconv.FormatInt(req.ID, 10))
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

// signedName derives "<base>-firmado.pdf" from the original key.
func signedName(originalKey string) string {
	base := path.Base(originalKey)
	base = strings.TrimSuffix(base, path.Ext(base))
	if i := strings.IndexByte(base, '_'); i > 0 && i < len(base)-1 {
		base = base[i+1:]
	}
	return base + "-firmado.pdf"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
