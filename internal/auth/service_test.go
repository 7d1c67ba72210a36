package auth_test

import (
	"testing"

	"spendlog/internal/auth"
	"spendlog/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ServiceTestSuite exercises the auth service against an in-memory database
type ServiceTestSuite struct {
	suite.Suite
	db  *storage.DB
	svc *auth.Service
}

// SetupTest runs before each test
func (suite *ServiceTestSuite) SetupTest() {
	db, err := storage.NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.svc = auth.NewService(db)
}

// TearDownTest runs after each test
func (suite *ServiceTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *ServiceTestSuite) TestRegister() {
	user, err := suite.svc.Register("alice", "secret1", "secret1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "alice", user.Username)
	assert.NotEqual(suite.T(), "secret1", user.PasswordHash, "raw password must never be stored")
}

func (suite *ServiceTestSuite) TestRegisterDuplicateUsername() {
	_, err := suite.svc.Register("alice", "secret1", "secret1")
	require.NoError(suite.T(), err)

	_, err = suite.svc.Register("alice", "another1", "another1")
	assert.ErrorIs(suite.T(), err, auth.ErrUsernameTaken)
}

func (suite *ServiceTestSuite) TestRegisterPasswordMismatch() {
	_, err := suite.svc.Register("alice", "secret1", "secret2")
	assert.ErrorIs(suite.T(), err, auth.ErrPasswordMismatch)

	count, err := suite.db.UserCount()
	require.NoError(suite.T(), err)
	assert.Zero(suite.T(), count, "no user row on mismatch")
}

func (suite *ServiceTestSuite) TestRegisterValidation() {
	_, err := suite.svc.Register("ab", "short", "short")
	require.Error(suite.T(), err)

	var verr *auth.ValidationError
	require.ErrorAs(suite.T(), err, &verr)
	assert.Contains(suite.T(), verr.Fields, "username")
	assert.Contains(suite.T(), verr.Fields, "password")
}

func (suite *ServiceTestSuite) TestLoginAndCurrentUser() {
	_, err := suite.svc.Register("alice", "secret1", "secret1")
	require.NoError(suite.T(), err)

	token, err := suite.svc.Login("alice", "secret1")
	require.NoError(suite.T(), err)
	require.NotEmpty(suite.T(), token)

	user, err := suite.svc.CurrentUser(token)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "alice", user.Username)
}

func (suite *ServiceTestSuite) TestLoginFailuresIndistinguishable() {
	_, err := suite.svc.Register("alice", "secret1", "secret1")
	require.NoError(suite.T(), err)

	_, wrongPass := suite.svc.Login("alice", "wrongpass")
	_, unknownUser := suite.svc.Login("nobody", "secret1")

	assert.ErrorIs(suite.T(), wrongPass, auth.ErrInvalidCredentials)
	assert.ErrorIs(suite.T(), unknownUser, auth.ErrInvalidCredentials)
	assert.Equal(suite.T(), wrongPass, unknownUser,
		"login failure must not reveal whether the username exists")
}

func (suite *ServiceTestSuite) TestLogoutInvalidatesSession() {
	_, err := suite.svc.Register("alice", "secret1", "secret1")
	require.NoError(suite.T(), err)

	token, err := suite.svc.Login("alice", "secret1")
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.svc.Logout(token))

	_, err = suite.svc.CurrentUser(token)
	assert.ErrorIs(suite.T(), err, auth.ErrUnauthenticated)
}

func (suite *ServiceTestSuite) TestCurrentUserEmptyToken() {
	_, err := suite.svc.CurrentUser("")
	assert.ErrorIs(suite.T(), err, auth.ErrUnauthenticated)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}
