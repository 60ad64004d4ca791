package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"contacts-manager/internal/domain"
	"contacts-manager/internal/repository"
	"contacts-manager/internal/service"
	"contacts-manager/internal/session"
	"contacts-manager/internal/storage"
)

const (
	sessionUserKey = "userId"
	contextUserKey = "currentUserID"

	loginPath    = "/login"
	contactsPath = "/contacts"

	minUsernameLength = 6
	minPasswordLength = 6
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	auth      service.AuthService
	contacts  service.ContactService
	sessions  *session.Store
	storage   storage.Service
	bucket    string
	keyPrefix string
}

func NewHandler(auth service.AuthService, contacts service.ContactService, sessions *session.Store, store storage.Service, bucket, keyPrefix string) *Handler {
	return &Handler{
		auth:      auth,
		contacts:  contacts,
		sessions:  sessions,
		storage:   store,
		bucket:    bucket,
		keyPrefix: strings.Trim(keyPrefix, "/"),
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	router.POST("/login", h.login)
	router.POST("/logout", h.logout)

	contacts := router.Group(contactsPath, h.RequireUser())
	{
		contacts.GET("", h.listContacts)
		contacts.POST("", h.createContact)
		contacts.GET("/:id", h.getContact)
		contacts.POST("/:id/edit", h.updateContact)
		contacts.POST("/:id/favorite", h.favoriteContact)
		contacts.POST("/:id/destroy", h.destroyContact)
		contacts.POST("/:id/avatar", h.uploadAvatar)
		contacts.GET("/:id/avatar", h.downloadAvatar)
	}

	api := router.Group("/api")
	{
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequireUser gates a route group on a valid session. Requests without a
// signed userId are redirected to the login page and aborted before any
// handler body runs; otherwise the user id is placed in the request context.
func (h *Handler) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := h.sessions.FromRequest(c.Request)
		userID, ok := sess.Get(sessionUserKey)
		if !ok || userID == "" {
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}
		c.Set(contextUserKey, userID)
		c.Next()
	}
}

// CurrentUserID returns the authenticated user id stored by RequireUser.
func CurrentUserID(c *gin.Context) string {
	return c.GetString(contextUserKey)
}

type errorResponse struct {
	FormErrors  []string            `json:"formErrors"`
	FieldErrors map[string][]string `json:"fieldErrors"`
}

func badRequest(c *gin.Context, resp errorResponse) {
	if resp.FormErrors == nil {
		resp.FormErrors = []string{}
	}
	if resp.FieldErrors == nil {
		resp.FieldErrors = map[string][]string{}
	}
	c.JSON(http.StatusBadRequest, resp)
}

type loginForm struct {
	Username  string
	Password  string
	LoginType string
}

// validateLoginForm checks the submitted form shape before any lookup happens.
// Unknown fields and malformed values produce the structured 400 payload; they
// never reach the auth service.
func validateLoginForm(values url.Values) (loginForm, *errorResponse) {
	resp := errorResponse{FieldErrors: map[string][]string{}}

	allowed := map[string]struct{}{"username": {}, "password": {}, "loginType": {}}
	var unknown []string
	for field := range values {
		if _, ok := allowed[field]; !ok {
			unknown = append(unknown, field)
		}
	}
	sort.Strings(unknown)
	for _, field := range unknown {
		resp.FormErrors = append(resp.FormErrors, fmt.Sprintf("unexpected field: %s", field))
	}

	form := loginForm{
		Username:  values.Get("username"),
		Password:  values.Get("password"),
		LoginType: values.Get("loginType"),
	}

	if len(form.Username) < minUsernameLength {
		resp.FieldErrors["username"] = append(resp.FieldErrors["username"],
			fmt.Sprintf("username must be at least %d characters", minUsernameLength))
	}
	if len(form.Password) < minPasswordLength {
		resp.FieldErrors["password"] = append(resp.FieldErrors["password"],
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if form.LoginType != "login" && form.LoginType != "register" {
		resp.FormErrors = append(resp.FormErrors, "login type not allowed")
	}

	if len(resp.FormErrors) > 0 || len(resp.FieldErrors) > 0 {
		return form, &resp
	}
	return form, nil
}

func (h *Handler) login(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		badRequest(c, errorResponse{FormErrors: []string{"malformed form submission"}})
		return
	}

	form, vErr := validateLoginForm(c.Request.PostForm)
	if vErr != nil {
		badRequest(c, *vErr)
		return
	}

	var (
		user *domain.User
		err  error
	)
	switch form.LoginType {
	case "login":
		user, err = h.auth.Login(c.Request.Context(), form.Username, form.Password)
		if errors.Is(err, service.ErrInvalidCredentials) {
			badRequest(c, errorResponse{FormErrors: []string{"Incorrect username or password"}})
			return
		}
	case "register":
		user, err = h.auth.Signup(c.Request.Context(), form.Username, form.Password)
		if errors.Is(err, service.ErrUserAlreadyExists) {
			badRequest(c, errorResponse{FormErrors: []string{"Could not register user, contact the administrator"}})
			return
		}
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.createUserSession(c, user.ID, contactsPath)
}

// createUserSession issues a fresh signed cookie for userID and redirects.
func (h *Handler) createUserSession(c *gin.Context, userID, redirectTo string) {
	sess := h.sessions.New()
	sess.Set(sessionUserKey, userID)

	cookie, err := h.sessions.Issue(sess)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	http.SetCookie(c.Writer, cookie)
	c.Redirect(http.StatusFound, redirectTo)
}

func (h *Handler) logout(c *gin.Context) {
	http.SetCookie(c.Writer, h.sessions.Expire())
	c.Redirect(http.StatusFound, loginPath)
}

func (h *Handler) listContacts(c *gin.Context) {
	contacts, err := h.contacts.List(c.Request.Context(), c.Query("q"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]ContactResponse, len(contacts))
	for i := range contacts {
		resp[i] = contactToResponse(contacts[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) createContact(c *gin.Context) {
	contact, err := h.contacts.CreateEmpty(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("%s/%s/edit", contactsPath, contact.ID))
}

func (h *Handler) getContact(c *gin.Context) {
	contact, err := h.contacts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "contact not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, contactToResponse(*contact))
}

func (h *Handler) updateContact(c *gin.Context) {
	contact, err := h.contacts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "contact not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	contact.First = c.PostForm("first")
	contact.Last = c.PostForm("last")
	contact.Twitter = c.PostForm("twitter")
	contact.Avatar = c.PostForm("avatar")
	contact.Notes = c.PostForm("notes")

	if err := h.contacts.Update(c.Request.Context(), contact); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("%s/%s", contactsPath, contact.ID))
}

func (h *Handler) favoriteContact(c *gin.Context) {
	favorite, err := strconv.ParseBool(c.DefaultPostForm("favorite", "true"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid flag favorite"})
		return
	}

	if err := h.contacts.SetFavorite(c.Request.Context(), c.Param("id"), favorite); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "contact not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("%s/%s", contactsPath, c.Param("id")))
}

func (h *Handler) destroyContact(c *gin.Context) {
	if err := h.contacts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "contact not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Redirect(http.StatusFound, contactsPath)
}

func (h *Handler) uploadAvatar(c *gin.Context) {
	if h.storage == nil || h.bucket == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage service not configured"})
		return
	}

	contact, err := h.contacts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "contact not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	header, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file is required"})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	key := h.avatarKey(contact.ID, header.Filename)
	contentType := header.Header.Get("Content-Type")

	uploadCtx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()
	if err := h.storage.UploadObject(uploadCtx, h.bucket, key, contentType, file); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	location := fmt.Sprintf("s3://%s/%s", h.bucket, key)
	if err := h.contacts.SetAvatar(c.Request.Context(), contact.ID, location); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("%s/%s", contactsPath, contact.ID))
}

func (h *Handler) downloadAvatar(c *gin.Context) {
	if h.storage == nil || h.bucket == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage service not configured"})
		return
	}

	contact, err := h.contacts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "contact not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// avatars set by hand may be plain URLs; only s3 locations are presigned
	if !strings.HasPrefix(contact.Avatar, "s3://") {
		if contact.Avatar == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "contact has no avatar"})
			return
		}
		c.Redirect(http.StatusFound, contact.Avatar)
		return
	}

	key, err := extractS3Key(contact.Avatar, h.bucket)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	signURL, err := h.storage.PresignGet(c.Request.Context(), h.bucket, key, 15*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Redirect(http.StatusFound, signURL)
}

func (h *Handler) avatarKey(contactID, filename string) string {
	name := fmt.Sprintf("%s%s", uuid.NewString(), strings.ToLower(path.Ext(filename)))
	if h.keyPrefix == "" {
		return fmt.Sprintf("%s/%s", contactID, name)
	}
	return fmt.Sprintf("%s/%s/%s", h.keyPrefix, contactID, name)
}

func extractS3Key(location, bucket string) (string, error) {
	if !strings.HasPrefix(location, "s3://") {
		return "", fmt.Errorf("invalid s3 location")
	}
	rest := strings.TrimPrefix(location, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("invalid s3 location")
	}
	if bucket != "" && parts[0] != bucket {
		return "", fmt.Errorf("s3 bucket mismatch")
	}
	return parts[1], nil
}

type ContactResponse struct {
	ID        string `json:"id"`
	First     string `json:"first"`
	Last      string `json:"last"`
	Twitter   string `json:"twitter"`
	Avatar    string `json:"avatar"`
	Notes     string `json:"notes"`
	Favorite  bool   `json:"favorite"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func contactToResponse(contact domain.Contact) ContactResponse {
	return ContactResponse{
		ID:        contact.ID,
		First:     contact.First,
		Last:      contact.Last,
		Twitter:   contact.Twitter,
		Avatar:    contact.Avatar,
		Notes:     contact.Notes,
		Favorite:  contact.Favorite,
		CreatedAt: contact.CreatedAt.Format(time.RFC3339),
		UpdatedAt: contact.UpdatedAt.Format(time.RFC3339),
	}
}
