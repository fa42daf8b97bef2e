package controllers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/api/middleware"
	"github.com/muxdry/storefront-backend/internal/messages"
	"github.com/muxdry/storefront-backend/pkg/auth"
	"github.com/muxdry/storefront-backend/pkg/enums"
)

type stubMessages struct {
	messages.Service
	sent   []messages.SendInput
	unread int64
}

func (s *stubMessages) Send(_ context.Context, actor auth.Actor, orderID uuid.UUID, input messages.SendInput) (*messages.MessageDTO, error) {
	s.sent = append(s.sent, input)
	return &messages.MessageDTO{ID: uuid.New(), OrderID: orderID, SenderID: actor.UserID, Body: input.Body}, nil
}

func (s *stubMessages) UnreadForUser(context.Context, uuid.UUID) (int64, error) {
	return s.unread, nil
}

func TestMessagesSendJSON(t *testing.T) {
	svc := &stubMessages{}
	orderID := uuid.New()
	req, _ := customerRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/messages", `{"message":"hello"}`)
	req = withURLParam(req, "orderId", orderID.String())
	resp := httptest.NewRecorder()
	MessagesSend(svc, 10<<20, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(svc.sent) != 1 || svc.sent[0].Body != "hello" || len(svc.sent[0].Image) != 0 {
		t.Fatalf("unexpected send input %+v", svc.sent)
	}
}

func TestMessagesSendMultipartWithImage(t *testing.T) {
	svc := &stubMessages{}
	orderID := uuid.New()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("message", "payment proof"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	part, err := form.CreateFormFile("file", "proof.png")
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	_, _ = part.Write([]byte("\x89PNG\r\n\x1a\nrest"))
	if err := form.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	multipartReq := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/messages", &buf)
	multipartReq.Header.Set("Content-Type", form.FormDataContentType())
	actor := auth.Actor{UserID: uuid.New(), Role: enums.UserRoleCustomer}
	multipartReq = multipartReq.WithContext(middleware.WithActor(multipartReq.Context(), actor))
	multipartReq = withURLParam(multipartReq, "orderId", orderID.String())

	resp := httptest.NewRecorder()
	MessagesSend(svc, 10<<20, nil).ServeHTTP(resp, multipartReq)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(svc.sent) != 1 || svc.sent[0].Body != "payment proof" {
		t.Fatalf("unexpected send input %+v", svc.sent)
	}
	if !bytes.HasPrefix(svc.sent[0].Image, []byte("\x89PNG")) {
		t.Fatalf("expected image bytes to reach the service")
	}
}

func TestMessagesSendMultipartWithoutImage(t *testing.T) {
	svc := &stubMessages{}
	orderID := uuid.New()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("message", "text only"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := form.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/messages", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req = req.WithContext(middleware.WithActor(req.Context(), auth.Actor{UserID: uuid.New(), Role: enums.UserRoleCustomer}))
	req = withURLParam(req, "orderId", orderID.String())

	resp := httptest.NewRecorder()
	MessagesSend(svc, 10<<20, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(svc.sent) != 1 || svc.sent[0].Body != "text only" || svc.sent[0].Image != nil {
		t.Fatalf("unexpected send input %+v", svc.sent)
	}
}

func TestMessagesSendRejectsEmptyJSON(t *testing.T) {
	svc := &stubMessages{}
	orderID := uuid.New()
	req, _ := customerRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/messages", `{"message":""}`)
	req = withURLParam(req, "orderId", orderID.String())
	resp := httptest.NewRecorder()
	MessagesSend(svc, 10<<20, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if len(svc.sent) != 0 {
		t.Fatalf("service should not be called")
	}
}
