package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/kokokojo2/desk2-virtual-university-backend/core"
	"github.com/kokokojo2/desk2-virtual-university-backend/core/course"
	"github.com/kokokojo2/desk2-virtual-university-backend/core/uni"
	"github.com/kokokojo2/desk2-virtual-university-backend/core/user"
	emailsvc "github.com/kokokojo2/desk2-virtual-university-backend/services/email"
	logsvc "github.com/kokokojo2/desk2-virtual-university-backend/services/logger"
	mediasvc "github.com/kokokojo2/desk2-virtual-university-backend/services/media"
	tokensvc "github.com/kokokojo2/desk2-virtual-university-backend/services/token"
	dummydb "github.com/kokokojo2/desk2-virtual-university-backend/storage/database/dummy"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

type testEnv struct {
	server    Server
	usrRepo   user.Repository
	usrSvc    user.Service
	courseSvc course.Service
	uniSvc    uni.Service
	tokens    *user.TokenGenerator
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	origDebug := core.Conf.Debug
	origRoot := core.Conf.MediaRoot
	core.Conf.Debug = false
	core.Conf.MediaRoot = t.TempDir()
	t.Cleanup(func() {
		core.Conf.Debug = origDebug
		core.Conf.MediaRoot = origRoot
	})
	emailsvc.ClearSentMessages()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}

	tokens := user.NewTokenGenerator(tokensvc.NewInmemStore())
	usrRepo := dummydb.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo, emailsvc.NewConsoleServiceMock(), tokens)
	courseSvc := course.NewService(nil, dummydb.NewCourseRepository(db), mediasvc.NewLocalStorage(core.Conf))
	uniSvc := uni.NewService(dummydb.NewUniRepository(db))

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)

	srv := NewServer(ServerDeps{
		DisableReqLogs: true,
		Logger:         logsvc.NewStdLogger(log.New(io.Discard, "TEST : ", log.LstdFlags)),
		UserSvc:        usrSvc,
		CourseSvc:      courseSvc,
		UniSvc:         uniSvc,
		Validate:       validate,
		Translator:     translator,
	})
	return &testEnv{
		server:    srv,
		usrRepo:   usrRepo,
		usrSvc:    usrSvc,
		courseSvc: courseSvc,
		uniSvc:    uniSvc,
		tokens:    tokens,
	}
}

func newTestTranslator() ut.Translator {
	_en := en.New()
	universal := ut.New(_en, _en)
	translator, _ := universal.GetTranslator("en")
	return translator
}

func createUser(t *testing.T, env *testEnv, first, last, email, pwd, kind string, isAdmin bool) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		FirstName:      first,
		LastName:       last,
		Email:          email,
		EmailConfirmed: true,
		IsActive:       true,
		IsAdmin:        isAdmin,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	switch kind {
	case user.ProfileTeacher:
		usr.Profile = &user.Profile{Kind: kind, ScientificDegree: "PhD", Position: "Lecturer"}
	case user.ProfileStudent:
		usr.Profile = &user.Profile{Kind: kind, StudentCardID: 10000000 + int64(len(email))}
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("SetPassword() failed: %v", err)
	}

	usr, err := env.usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (env *testEnv) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	env.server.ServeHTTP(rec, req)
	return rec
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func decodeObj(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("decodeObj() failed: %v; body = %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
