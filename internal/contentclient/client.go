// Пакет contentclient — HTTP-клиент Content API и сервиса загрузки файлов.
// Используется сессией редактора и внешними инструментами (импорт контента).
// Авторизация — Bearer-токен сервисного аккаунта через client_credentials
// (golang.org/x/oauth2) либо произвольный *http.Client вызывающего.
package contentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/h4ck3r-coding/csc-portal/content-module/internal/api/contract"
	"github.com/h4ck3r-coding/csc-portal/content-module/internal/domain/model"
)

// APIError — неуспешный ответ Content API.
// Черновик на стороне вызывающего не меняется, запрос можно повторить.
type APIError struct {
	// StatusCode — HTTP статус ответа
	StatusCode int
	// Code — машиночитаемый код ошибки (VALIDATION_ERROR, NOT_FOUND, ...)
	Code string
	// Message — сообщение сервера для пользователя
	Message string
}

// Error реализует интерфейс error.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("content API: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("content API: %d: %s", e.StatusCode, e.Message)
}

// IsNotFound сообщает, что запись или файл не найдены.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client — HTTP-клиент Content API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// New создаёт клиент. baseURL — адрес сервиса (например, http://content-module:8040).
// httpClient отвечает за авторизацию; nil — http.DefaultClient.
func New(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/") + "/api/v1",
		logger:     logger.With(slog.String("component", "content_client")),
	}
}

// NewWithClientCredentials создаёт клиент с токеном сервисного аккаунта.
// Токен запрашивается у tokenURL (Keycloak token endpoint) со scope
// content:write и обновляется автоматически.
func NewWithClientCredentials(
	ctx context.Context,
	baseURL, tokenURL, clientID, clientSecret string,
	timeout time.Duration,
	logger *slog.Logger,
) *Client {
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       []string{"content:write"},
	}
	httpClient := cfg.Client(ctx)
	httpClient.Timeout = timeout
	return New(baseURL, httpClient, logger)
}

// --- Контент ---

// ListOptions — фильтры и пагинация списка.
type ListOptions struct {
	Category  string
	Status    model.Status
	Query     string
	Featured  *bool
	Important *bool
	Limit     int
	Offset    int
}

// ListPage — страница списка записей.
type ListPage struct {
	Items   []*model.ContentItem
	Total   int
	HasMore bool
}

// List возвращает страницу записей указанного типа.
// GET /api/v1/{contentType}
func (c *Client) List(ctx context.Context, t model.ContentType, opts ListOptions) (*ListPage, error) {
	q := url.Values{}
	if opts.Category != "" {
		q.Set("category", opts.Category)
	}
	if opts.Status != "" {
		q.Set("status", string(opts.Status))
	}
	if opts.Query != "" {
		q.Set("q", opts.Query)
	}
	if opts.Featured != nil {
		q.Set("featured", strconv.FormatBool(*opts.Featured))
	}
	if opts.Important != nil {
		q.Set("important", strconv.FormatBool(*opts.Important))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}

	reqURL := c.contentURL(t)
	if len(q) > 0 {
		reqURL += "?" + q.Encode()
	}

	var resp contract.ListResponse
	if err := c.doJSON(ctx, http.MethodGet, reqURL, nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}

	page := &ListPage{Total: resp.Total, HasMore: resp.HasMore, Items: make([]*model.ContentItem, 0, len(resp.Items))}
	for _, item := range resp.Items {
		page.Items = append(page.Items, fromWire(t, item))
	}
	return page, nil
}

// Get возвращает запись по ID.
// GET /api/v1/{contentType}/{id}
func (c *Client) Get(ctx context.Context, t model.ContentType, id string) (*model.ContentItem, error) {
	var resp contract.ItemResponse
	if err := c.doJSON(ctx, http.MethodGet, c.itemURL(t, id), nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return itemFromResponse(t, &resp)
}

// Create создаёт запись. Возвращает сохранённую запись и сообщение сервера.
// POST /api/v1/{contentType}
func (c *Client) Create(ctx context.Context, item *model.ContentItem) (*model.ContentItem, string, error) {
	var resp contract.ItemResponse
	if err := c.doJSON(ctx, http.MethodPost, c.contentURL(item.Type), contract.FromModel(item), http.StatusCreated, &resp); err != nil {
		return nil, "", err
	}
	saved, err := itemFromResponse(item.Type, &resp)
	if err != nil {
		return nil, "", err
	}
	return saved, resp.Message, nil
}

// Update сохраняет изменения записи item.ID.
// PUT /api/v1/{contentType}/{id}
func (c *Client) Update(ctx context.Context, item *model.ContentItem) (*model.ContentItem, string, error) {
	if item.ID == "" {
		return nil, "", errors.New("обновление записи без ID")
	}
	var resp contract.ItemResponse
	if err := c.doJSON(ctx, http.MethodPut, c.itemURL(item.Type, item.ID), contract.FromModel(item), http.StatusOK, &resp); err != nil {
		return nil, "", err
	}
	saved, err := itemFromResponse(item.Type, &resp)
	if err != nil {
		return nil, "", err
	}
	return saved, resp.Message, nil
}

// Delete удаляет запись.
// DELETE /api/v1/{contentType}/{id}
func (c *Client) Delete(ctx context.Context, t model.ContentType, id string) error {
	var resp contract.DeleteResponse
	return c.doJSON(ctx, http.MethodDelete, c.itemURL(t, id), nil, http.StatusOK, &resp)
}

// BuildDriveAttachment строит вложение из ссылки Google Drive на сервере
// (с размером файла, если сервер настроен на Drive API).
// POST /api/v1/attachments/drive
func (c *Client) BuildDriveAttachment(ctx context.Context, name, driveURL string) (model.Attachment, error) {
	var resp contract.AttachmentResponse
	req := contract.DriveAttachmentRequest{Name: name, URL: driveURL}
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/attachments/drive", req, http.StatusCreated, &resp); err != nil {
		return model.Attachment{}, err
	}
	if resp.Attachment == nil {
		return model.Attachment{}, errors.New("content API: ответ без вложения")
	}
	return *resp.Attachment, nil
}

// --- Загрузка файлов ---

// Upload передаёт файл в сервис загрузки (multipart, поле file).
// Реализует model.Uploader.
// POST /api/v1/uploads
func (c *Client) Upload(ctx context.Context, file model.LocalFile) (*model.UploadedFile, error) {
	if file.Body == nil {
		return nil, errors.New("нет содержимого файла")
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeMultipartFile(mw, file))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/uploads", pr)
	if err != nil {
		_ = pr.Close()
		return nil, fmt.Errorf("создание запроса Upload: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp contract.UploadResponse
	if err := c.do(req, http.StatusCreated, &resp); err != nil {
		_ = pr.Close()
		return nil, err
	}
	if resp.File == nil {
		return nil, errors.New("content API: ответ без описания файла")
	}

	c.logger.Debug("Файл загружен",
		slog.String("name", resp.File.Name),
		slog.Int64("size", resp.File.Size),
	)
	return resp.File, nil
}

// writeMultipartFile пишет файл в поле file и закрывает multipart writer.
func writeMultipartFile(mw *multipart.Writer, file model.LocalFile) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file.Body); err != nil {
		return err
	}
	return mw.Close()
}

// --- Вспомогательные функции ---

func (c *Client) contentURL(t model.ContentType) string {
	return c.baseURL + "/" + t.PathSegment()
}

func (c *Client) itemURL(t model.ContentType, id string) string {
	return c.contentURL(t) + "/" + url.PathEscape(id)
}

// doJSON выполняет запрос с JSON-телом (body может быть nil).
func (c *Client) doJSON(ctx context.Context, method, reqURL string, body any, wantStatus int, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("кодирование запроса: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("создание запроса %s %s: %w", method, reqURL, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, wantStatus, out)
}

// do выполняет запрос и декодирует успешный ответ в out.
// Неожиданный статус или success=false в конверте — *APIError с сообщением сервера.
func (c *Client) do(req *http.Request, wantStatus int, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации
	if err != nil {
		return fmt.Errorf("запрос %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return decodeAPIError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("чтение ответа %s %s: %w", req.Method, req.URL.Path, err)
	}
	var envelope contract.ErrorResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("декодирование ответа %s %s: %w", req.Method, req.URL.Path, err)
	}
	if !envelope.Success {
		return envelopeError(resp.StatusCode, &envelope)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("декодирование ответа %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// envelopeError строит *APIError из конверта с success=false.
func envelopeError(status int, envelope *contract.ErrorResponse) *APIError {
	apiErr := &APIError{StatusCode: status, Message: envelope.Message}
	if envelope.Error != nil {
		apiErr.Code = envelope.Error.Code
		if apiErr.Message == "" {
			apiErr.Message = envelope.Error.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = "запрос отклонён сервером"
	}
	return apiErr
}

// decodeAPIError строит *APIError из тела ответа с ошибкой.
func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var errResp contract.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && (errResp.Message != "" || errResp.Error != nil) {
		apiErr.Message = errResp.Message
		if errResp.Error != nil {
			apiErr.Code = errResp.Error.Code
			if apiErr.Message == "" {
				apiErr.Message = errResp.Error.Message
			}
		}
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(body))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func itemFromResponse(t model.ContentType, resp *contract.ItemResponse) (*model.ContentItem, error) {
	if resp.Item == nil {
		return nil, errors.New("content API: ответ без записи")
	}
	return fromWire(t, *resp.Item), nil
}

// fromWire преобразует запись ответа, сохраняя серверные поля.
func fromWire(t model.ContentType, item contract.ContentItem) *model.ContentItem {
	out := item.ToModel(t)
	out.CreatedBy = item.CreatedBy
	if item.CreatedAt != nil {
		out.CreatedAt = *item.CreatedAt
	}
	if item.UpdatedAt != nil {
		out.UpdatedAt = *item.UpdatedAt
	}
	return out
}

var _ model.Uploader = (*Client)(nil)
