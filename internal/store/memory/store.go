// Package memory implements the storage contract with mutex-guarded maps.
// It is the development and test backend: single process, nothing survives
// a restart.
package memory

import (
	"github.com/promptvault/promptvault/internal/domain"
)

type Store struct {
	logs     *LogRepo
	users    *UserRepo
	sessions *SessionRepo
}

func New() *Store {
	return &Store{
		logs:     NewLogRepo(domain.NewIDGenerator()),
		users:    NewUserRepo(),
		sessions: NewSessionRepo(),
	}
}

func (s *Store) Close() {}

func (s *Store) Logs() domain.LogRepository         { return s.logs }
func (s *Store) Users() domain.UserRepository       { return s.users }
func (s *Store) Sessions() domain.SessionRepository { return s.sessions }
