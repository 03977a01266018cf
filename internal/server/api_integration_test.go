package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Baaaki/gameshelf/internal/broker"
	"github.com/Baaaki/gameshelf/internal/dto"
	"github.com/Baaaki/gameshelf/internal/handler"
	"github.com/Baaaki/gameshelf/internal/journal"
	"github.com/Baaaki/gameshelf/internal/middleware"
	"github.com/Baaaki/gameshelf/internal/models"
	"github.com/Baaaki/gameshelf/internal/repository"
	"github.com/Baaaki/gameshelf/internal/server"
	"github.com/Baaaki/gameshelf/internal/service"
	"github.com/Baaaki/gameshelf/internal/storage"
	"github.com/Baaaki/gameshelf/internal/testutil"
	"github.com/Baaaki/gameshelf/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

const (
	testJWTSecret = "api-test-secret-0123456789abcdefghij"
	maxUpload     = 1 << 20
)

type APIIntegrationTestSuite struct {
	suite.Suite
	testDB    *testutil.TestDatabase
	testRedis *testutil.TestRedis

	router      *gin.Engine
	loanFeed    *handler.LoanFeedHandler
	stopFeed    context.CancelFunc
	events      *broker.LocalBroker
	loanJournal *journal.Journal
}

func (s *APIIntegrationTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	logger.Init(false)

	s.testDB = testutil.SetupTestDatabase(s.T())
	s.testRedis = testutil.SetupTestRedis(s.T())
}

func (s *APIIntegrationTestSuite) TearDownSuite() {
	s.testRedis.Teardown(s.T())
	s.testDB.Teardown(s.T())
}

func (s *APIIntegrationTestSuite) SetupTest() {
	testutil.CleanDatabase(s.T(), s.testDB.DB)
	s.testRedis.Server.FlushAll()

	dir := s.T().TempDir()
	var err error
	s.loanJournal, err = journal.Open(filepath.Join(dir, "loans.journal"))
	s.Require().NoError(err)
	store, err := storage.NewLocalStore(filepath.Join(dir, "uploads"), maxUpload, []string{"png", "jpg", "pdf"})
	s.Require().NoError(err)

	db := s.testDB.DB
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	tokens := service.NewTokenService(repository.NewTokenRepository(db), userRepo, testJWTSecret, time.Hour, 24*time.Hour)
	s.events = broker.NewLocalBroker()

	s.loanFeed = handler.NewLoanFeedHandler(s.events, tokens, []string{"*"})
	ctx, cancel := context.WithCancel(context.Background())
	s.stopFeed = cancel
	s.Require().NoError(s.loanFeed.Start(ctx))

	s.router = server.NewRouter(server.Deps{
		DB:        db,
		Redis:     s.testRedis.Client,
		Tokens:    tokens,
		Auth:      service.NewAuthService(userRepo, roleRepo, tokens),
		Users:     service.NewUserService(db, tokens),
		Roles:     service.NewRoleService(roleRepo),
		Games:     service.NewGameService(db),
		Loans:     service.NewLoanService(db, s.loanJournal, s.events),
		Documents: service.NewDocumentService(db, store),
		LoanFeed:  s.loanFeed,
		RateLimiter: middleware.NewRateLimiter(s.testRedis.Client, middleware.RateLimiterConfig{
			MaxRequests: 100,
			Window:      time.Minute,
		}),
	}, server.Options{
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		MaxUploadSize:      maxUpload,
	})
}

func (s *APIIntegrationTestSuite) TearDownTest() {
	s.stopFeed()
	s.events.Close()
	s.loanJournal.Close()
}

type session struct {
	userID uint
	token  string
}

func (s *APIIntegrationTestSuite) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func data[T any](s *APIIntegrationTestSuite, w *httptest.ResponseRecorder) T {
	var env dto.Envelope[T]
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	s.Require().True(env.Success, w.Body.String())
	return env.Data
}

func errorOf(s *APIIntegrationTestSuite, w *httptest.ResponseRecorder) *dto.ErrorBody {
	var env dto.Envelope[any]
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	s.Require().NotNil(env.Error, w.Body.String())
	return env.Error
}

func (s *APIIntegrationTestSuite) register(publicName string) session {
	w := s.request(http.MethodPost, "/api/auth/register", map[string]string{
		"name":       strings.ToUpper(publicName[:1]) + publicName[1:],
		"publicName": publicName,
		"email":      publicName + "@example.com",
		"password":   "SecurePass123",
		"city":       "Sevilla",
	}, "")
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	resp := data[dto.AuthResponse](s, w)
	return session{userID: resp.UserID, token: resp.AccessToken}
}

func (s *APIIntegrationTestSuite) createGame(owner session, title string) dto.GameResponse {
	w := s.request(http.MethodPost, "/api/games", map[string]string{"title": title, "platform": "SNES"}, owner.token)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	return data[dto.GameResponse](s, w)
}

func (s *APIIntegrationTestSuite) lend(caller session, gameID, borrowerID uint) *httptest.ResponseRecorder {
	return s.request(http.MethodPost, "/api/loans", map[string]any{
		"gameId":             gameID,
		"borrowerId":         borrowerID,
		"expectedReturnDate": time.Now().Add(14 * 24 * time.Hour).UTC(),
		"notes":              "keep the manual",
	}, caller.token)
}

func (s *APIIntegrationTestSuite) gameStatus(gameID uint) models.GameStatus {
	w := s.request(http.MethodGet, fmt.Sprintf("/api/games/%d", gameID), nil, "")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	return data[dto.GameResponse](s, w).Status
}

func (s *APIIntegrationTestSuite) TestLendAndReturnGame() {
	alice := s.register("alice")
	bob := s.register("bob")
	game := s.createGame(alice, "Chrono Trigger")
	s.Equal(models.GameAvailable, game.Status)
	s.Equal(alice.userID, game.OwnerID)

	w := s.lend(alice, game.ID, bob.userID)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	loan := data[dto.LoanResponse](s, w)
	s.Equal(alice.userID, loan.LenderID, "lender defaults to the owner")
	s.Equal(bob.userID, loan.BorrowerID)
	s.Equal(models.LoanActive, loan.State)
	s.Equal(models.GameBorrowed, s.gameStatus(game.ID))

	again := s.lend(alice, game.ID, bob.userID)
	s.Equal(http.StatusConflict, again.Code)
	s.Equal("game is not available", errorOf(s, again).Message)

	w = s.request(http.MethodGet, "/api/loans?as=borrower&active=true", nil, bob.token)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	borrowed := data[[]dto.LoanResponse](s, w)
	s.Require().Len(borrowed, 1)
	s.Equal(loan.ID, borrowed[0].ID)
	s.Equal("Chrono Trigger", borrowed[0].GameTitle)

	w = s.request(http.MethodGet, "/api/loans?as=borrower", nil, alice.token)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Empty(data[[]dto.LoanResponse](s, w))

	w = s.request(http.MethodPost, fmt.Sprintf("/api/loans/%d/return", loan.ID), nil, bob.token)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	returned := data[dto.LoanResponse](s, w)
	s.Equal(models.LoanReturned, returned.State)
	s.NotNil(returned.ReturnDate)
	s.Equal(models.GameAvailable, s.gameStatus(game.ID))

	w = s.request(http.MethodPost, fmt.Sprintf("/api/loans/%d/return", loan.ID), nil, bob.token)
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("loan already returned", errorOf(s, w).Message)

	entries, err := s.loanJournal.ReadAll()
	s.Require().NoError(err)
	s.Len(entries, 2)
}

func (s *APIIntegrationTestSuite) TestLoanVisibility() {
	alice := s.register("alice")
	bob := s.register("bob")
	mallory := s.register("mallory")
	game := s.createGame(alice, "EarthBound")

	w := s.lend(alice, game.ID, bob.userID)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	loan := data[dto.LoanResponse](s, w)

	s.Equal(http.StatusForbidden, s.request(http.MethodGet, fmt.Sprintf("/api/loans/%d", loan.ID), nil, mallory.token).Code)
	s.Equal(http.StatusForbidden, s.request(http.MethodPost, fmt.Sprintf("/api/loans/%d/return", loan.ID), nil, mallory.token).Code)
	s.Equal(http.StatusForbidden, s.request(http.MethodDelete, fmt.Sprintf("/api/loans/%d", loan.ID), nil, alice.token).Code)
	s.Equal(http.StatusUnauthorized, s.request(http.MethodGet, "/api/loans", nil, "").Code)
	s.Equal(http.StatusBadRequest, s.request(http.MethodGet, "/api/loans?as=owner", nil, alice.token).Code)
}

func (s *APIIntegrationTestSuite) TestUserProfileHidesOtherUsersLoans() {
	alice := s.register("alice")
	bob := s.register("bob")
	mallory := s.register("mallory")
	game := s.createGame(alice, "EarthBound")
	s.Require().Equal(http.StatusCreated, s.lend(alice, game.ID, bob.userID).Code)

	for _, include := range []string{"loans", "loansborrowed", "games,loanslent"} {
		w := s.request(http.MethodGet, fmt.Sprintf("/api/users/%d?include=%s", bob.userID, include), nil, mallory.token)
		s.Equal(http.StatusForbidden, w.Code, include)
		s.NotContains(w.Body.String(), "keep the manual")
	}

	w := s.request(http.MethodGet, fmt.Sprintf("/api/users/%d?include=loans", bob.userID), nil, bob.token)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	own := data[dto.UserResponse](s, w)
	s.Require().Len(own.LoansBorrowed, 1)
	s.Equal([]string{models.RoleUser}, own.Roles, "roles load alongside other includes")

	w = s.request(http.MethodGet, fmt.Sprintf("/api/users/%d?include=games", alice.userID), nil, mallory.token)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	profile := data[dto.UserResponse](s, w)
	s.Len(profile.Games, 1)
	s.Equal([]string{models.RoleUser}, profile.Roles)
	s.Empty(profile.Email)
}

func (s *APIIntegrationTestSuite) TestGamesAreBrowsableAnonymously() {
	alice := s.register("alice")
	s.createGame(alice, "Secret of Mana")

	w := s.request(http.MethodGet, fmt.Sprintf("/api/games?ownerId=%d&include=owner", alice.userID), nil, "")

	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	games := data[[]dto.GameResponse](s, w)
	s.Require().Len(games, 1)
	s.Equal("Secret of Mana", games[0].Title)
	s.Require().NotNil(games[0].Owner)
	s.Equal("alice", games[0].Owner.PublicName)

	s.Equal(http.StatusUnauthorized,
		s.request(http.MethodPost, "/api/games", map[string]string{"title": "Nope"}, "").Code)
}

func (s *APIIntegrationTestSuite) TestAdminOnlyRoutes() {
	alice := s.register("alice")

	s.Equal(http.StatusForbidden, s.request(http.MethodGet, "/api/users", nil, alice.token).Code)
	s.Equal(http.StatusForbidden, s.request(http.MethodGet, "/api/admin/ip-bans", nil, alice.token).Code)
	s.Equal(http.StatusForbidden,
		s.request(http.MethodPost, "/api/roles", map[string]string{"name": "ROLE_CURATOR"}, alice.token).Code)
}

func pngBytes(s *APIIntegrationTestSuite) []byte {
	var buf bytes.Buffer
	s.Require().NoError(png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func (s *APIIntegrationTestSuite) upload(token, fileName string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", fileName)
	s.Require().NoError(err)
	_, err = part.Write(content)
	s.Require().NoError(err)
	for k, v := range fields {
		s.Require().NoError(mw.WriteField(k, v))
	}
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *APIIntegrationTestSuite) TestUploadAndDownloadCover() {
	alice := s.register("alice")
	game := s.createGame(alice, "Super Metroid")
	content := pngBytes(s)

	w := s.upload(alice.token, "cover.png", content, map[string]string{
		"name":   "Box art",
		"gameId": fmt.Sprint(game.ID),
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	doc := data[dto.DocumentResponse](s, w)
	s.Equal("Box art", doc.Name)
	s.Equal("image/png", doc.ContentType)
	s.True(strings.HasPrefix(doc.URL, dto.DownloadPath), doc.URL)

	w = s.request(http.MethodGet, doc.URL, nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("image/png", w.Header().Get("Content-Type"))
	s.Equal(content, w.Body.Bytes())

	w = s.request(http.MethodGet, fmt.Sprintf("/api/games/%d?include=image", game.ID), nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	withImage := data[dto.GameResponse](s, w)
	s.Require().NotNil(withImage.ImageID)
	s.Equal(doc.ID, *withImage.ImageID)
}

func (s *APIIntegrationTestSuite) TestDocumentMetadataOnlyForUploader() {
	alice := s.register("alice")
	mallory := s.register("mallory")

	w := s.upload(alice.token, "private.png", pngBytes(s), nil)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	doc := data[dto.DocumentResponse](s, w)

	w = s.request(http.MethodGet, fmt.Sprintf("/api/documents/%d", doc.ID), nil, mallory.token)
	s.Equal(http.StatusForbidden, w.Code)
	s.NotContains(w.Body.String(), doc.FileName)

	w = s.request(http.MethodGet, "/api/documents", nil, mallory.token)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Empty(data[[]dto.DocumentResponse](s, w))

	w = s.request(http.MethodGet, fmt.Sprintf("/api/documents/%d", doc.ID), nil, alice.token)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(doc.FileName, data[dto.DocumentResponse](s, w).FileName)
}

func (s *APIIntegrationTestSuite) TestUploadRejectsDisallowedFiles() {
	alice := s.register("alice")

	s.Equal(http.StatusBadRequest, s.upload(alice.token, "script.sh", []byte("#!/bin/sh\necho hi\n"), nil).Code)
	s.Equal(http.StatusBadRequest, s.upload(alice.token, "report.pdf", pngBytes(s), nil).Code)
	s.Equal(http.StatusBadRequest, s.upload(alice.token, "huge.png", bytes.Repeat([]byte{0}, maxUpload+1), nil).Code)
}

func (s *APIIntegrationTestSuite) TestHealthAndMetrics() {
	w := s.request(http.MethodGet, "/health", nil, "")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Contains(w.Body.String(), `"database":"ok"`)
	s.Contains(w.Body.String(), `"redis":"ok"`)
	s.NotEmpty(w.Header().Get(middleware.RequestIDHeader))

	w = s.request(http.MethodGet, "/metrics", nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "gameshelf_http_requests_total")
}

func (s *APIIntegrationTestSuite) dialFeed(srv *httptest.Server, token string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/loans?access_token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	if resp != nil && resp.Body != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
	return conn
}

func (s *APIIntegrationTestSuite) readEvent(conn *websocket.Conn) handler.WSMessage {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(3 * time.Second)))
	var msg handler.WSMessage
	s.Require().NoError(conn.ReadJSON(&msg))
	return msg
}

func (s *APIIntegrationTestSuite) TestLoanFeedOnlyReachesParticipants() {
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	alice := s.register("alice")
	bob := s.register("bob")
	carol := s.register("carol")
	dave := s.register("dave")

	bobConn := s.dialFeed(srv, bob.token)
	defer bobConn.Close()
	carolConn := s.dialFeed(srv, carol.token)
	defer carolConn.Close()
	s.Require().Eventually(func() bool { return s.loanFeed.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	chrono := s.createGame(alice, "Chrono Trigger")
	s.Require().Equal(http.StatusCreated, s.lend(alice, chrono.ID, bob.userID).Code)
	zelda := s.createGame(carol, "A Link to the Past")
	s.Require().Equal(http.StatusCreated, s.lend(carol, zelda.ID, dave.userID).Code)

	msg := s.readEvent(bobConn)
	s.Equal(handler.WSMessageLoanEvent, msg.Type)
	s.Require().NotNil(msg.Event)
	s.Equal(broker.LoanCreated, msg.Event.Type)
	s.Equal(chrono.ID, msg.Event.GameID)

	msg = s.readEvent(carolConn)
	s.Require().NotNil(msg.Event)
	s.Equal(zelda.ID, msg.Event.GameID, "carol must not see loans she is not part of")
}

func (s *APIIntegrationTestSuite) TestLoanFeedRequiresToken() {
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/loans"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)

	s.Require().Error(err)
	s.Require().NotNil(resp)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestAPIIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(APIIntegrationTestSuite))
}
