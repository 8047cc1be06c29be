package repos

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/openmapping/tasking/internal/db/models"
)

type UserRepositoryTestSuite struct {
	DBRepositoryTestSuite
}

func TestUserRepository(t *testing.T) {
	suite.Run(t, new(UserRepositoryTestSuite))
}

func (s *UserRepositoryTestSuite) TestCreateUser() {
	user := &models.User{Username: "validator"}
	s.Require().NoError(s.store.Users.CreateUser(s.ctx, user))
	s.NotZero(user.ID)

	err := s.store.Users.CreateUser(s.ctx, &models.User{Username: "validator"})
	s.Error(err)
	s.Contains(err.Error(), "already exists")
}

func (s *UserRepositoryTestSuite) TestGetUser() {
	got, err := s.store.Users.GetUserByID(s.ctx, s.mapper.ID)
	s.Require().NoError(err)
	s.Equal("mapper", got.Username)

	got, err = s.store.Users.GetUserByUsername(s.ctx, "other")
	s.Require().NoError(err)
	s.Equal(s.other.ID, got.ID)

	_, err = s.store.Users.GetUserByID(s.ctx, 999)
	s.True(IsNotFound(err))
	_, err = s.store.Users.GetUserByUsername(s.ctx, "nobody")
	s.True(IsNotFound(err))
}

func (s *UserRepositoryTestSuite) TestUsernames() {
	names, err := s.store.Users.Usernames(s.ctx, []int64{s.mapper.ID, s.other.ID, 999})
	s.Require().NoError(err)
	s.Equal(map[int64]string{s.mapper.ID: "mapper", s.other.ID: "other"}, names)

	names, err = s.store.Users.Usernames(s.ctx, nil)
	s.Require().NoError(err)
	s.Empty(names)
}
