package cluster

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openflighthpc/cluster-builder/internal/errdef"
	"github.com/openflighthpc/cluster-builder/internal/middleware"
	"github.com/openflighthpc/cluster-builder/pkg/clustertype"
	"github.com/openflighthpc/cluster-builder/pkg/inttest"
	"github.com/openflighthpc/cluster-builder/pkg/openstack"
)

const createClusterBody = `{
	"cloud_env": {
		"auth_url": "https://keystone:5000/v3",
		"username": "admin",
		"password": "secret",
		"project_name": "admin",
		"project_domain_name": "default",
		"user_domain_name": "default"
	},
	"cluster": {
		"name": "mycluster",
		"cluster_type_id": "kubernetes",
		"parameters": {"keypair": "mykey"},
		"selections": {"storage": true}
	},
	"billing_account_id": "account",
	"middleware_url": "http://middleware"
}`

func TestClusterHandler(t *testing.T) {
	secret := []byte("shared secret")
	service := &mockClusterService{}
	service.
		On("Create", openstack.Credentials{
			AuthURL:           "https://keystone:5000/v3",
			Username:          "admin",
			Password:          "secret",
			ProjectName:       "admin",
			ProjectDomainName: "default",
			UserDomainName:    "default",
		}, Request{
			Name:             "mycluster",
			ClusterTypeID:    "kubernetes",
			Answers:          clustertype.Answers{"keypair": "mykey"},
			Selections:       clustertype.Selections{"storage": true},
			BillingAccountID: "account",
			MiddlewareURL:    "http://middleware",
		}).
		Return(openstack.Cluster{ID: "cluster-id", Name: "mycluster"}, nil)

	client := inttest.SetupHTTPServer(t, func(engine *gin.Engine) {
		require.NoError(t, openstack.RegisterValidation())
		authentication := middleware.NewAuthentication(slog.New(slog.DiscardHandler), secret)
		Routes(engine.Group(""), authentication, NewHandler(service))
	})
	token := signToken(t, secret)

	t.Run("Create", func(t *testing.T) {
		var cluster openstack.Cluster
		client.PostJSON(t, "/clusters", strings.NewReader(createClusterBody), &cluster, inttest.WithAuthToken(token))

		assert.Equal(t, openstack.Cluster{ID: "cluster-id", Name: "mycluster"}, cluster)
		service.AssertExpectations(t)
	})

	t.Run("CreateWithoutToken", func(t *testing.T) {
		body := client.Do(t, http.MethodPost, "/clusters", strings.NewReader(createClusterBody), http.StatusUnauthorized,
			inttest.WithHeader("Content-Type", "application/json"))

		response := decodeError(t, body)
		assert.Equal(t, middleware.AuthenticationErrorTitle, response.Title)
	})

	t.Run("CreateWithInvalidCredentials", func(t *testing.T) {
		requestBody := `{
			"cloud_env": {"auth_url": "https://keystone:5000/v3", "user_id": "user", "password": "secret"},
			"cluster": {"name": "mycluster", "cluster_type_id": "kubernetes"},
			"billing_account_id": "account",
			"middleware_url": "http://middleware"
		}`

		body := client.Do(t, http.MethodPost, "/clusters", strings.NewReader(requestBody), http.StatusBadRequest,
			inttest.WithAuthToken(token), inttest.WithHeader("Content-Type", "application/json"))

		response := decodeError(t, body)
		require.NotNil(t, response.Source)
		assert.Equal(t, "/cloud_env/project_id", response.Source.Pointer)
	})

	t.Run("CreateWithoutClusterName", func(t *testing.T) {
		requestBody := strings.Replace(createClusterBody, `"name": "mycluster",`, "", 1)

		body := client.Do(t, http.MethodPost, "/clusters", strings.NewReader(requestBody), http.StatusBadRequest,
			inttest.WithAuthToken(token), inttest.WithHeader("Content-Type", "application/json"))

		response := decodeError(t, body)
		assert.Equal(t, "JSON schema error", response.Title)
		require.NotNil(t, response.Source)
		assert.Equal(t, "/cluster/name", response.Source.Pointer)
	})

	t.Run("CreateWithoutJSON", func(t *testing.T) {
		client.Do(t, http.MethodPost, "/clusters", strings.NewReader(createClusterBody), http.StatusUnsupportedMediaType,
			inttest.WithAuthToken(token), inttest.WithHeader("Content-Type", "text/plain"))
	})

	t.Run("CreateFails", func(t *testing.T) {
		failing := &mockClusterService{}
		failing.On("Create", mock.Anything, mock.Anything).
			Return(openstack.Cluster{}, errdef.WithPointer(errdef.WithTitle(errdef.NewUpstream(http.StatusBadRequest, "image centos not found"), "Bad Request"), "/cluster/parameters/image"))
		client := inttest.SetupHTTPServer(t, func(engine *gin.Engine) {
			authentication := middleware.NewAuthentication(slog.New(slog.DiscardHandler), secret)
			Routes(engine.Group(""), authentication, NewHandler(failing))
		})

		body := client.Do(t, http.MethodPost, "/clusters", strings.NewReader(createClusterBody), http.StatusBadRequest,
			inttest.WithAuthToken(token), inttest.WithHeader("Content-Type", "application/json"))

		assert.Equal(t, middleware.ErrorObject{
			Status: "400",
			Title:  "Bad Request",
			Detail: "image centos not found",
			Source: &middleware.ErrorSource{Pointer: "/cluster/parameters/image"},
		}, decodeError(t, body))
	})
}

func signToken(t *testing.T, secret []byte) string {
	t.Helper()
	token, err := jwt.NewBuilder().Expiration(time.Now().Add(time.Hour)).Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, secret))
	require.NoError(t, err)
	return string(signed)
}

func decodeError(t *testing.T, body []byte) middleware.ErrorObject {
	t.Helper()
	var response middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &response))
	require.Len(t, response.Errors, 1)
	return response.Errors[0]
}

type mockClusterService struct{ mock.Mock }

func (m *mockClusterService) Create(ctx context.Context, credentials openstack.Credentials, request Request) (openstack.Cluster, error) {
	called := m.Called(credentials, request)
	return called.Get(0).(openstack.Cluster), called.Error(1)
}
