package db

// Repositories provides access to all database repositories
type Repositories struct {
	Reels *ReelRepository
}

// NewRepositories creates a new repository collection
func NewRepositories(db *DB) *Repositories {
	return &Repositories{
		Reels: NewReelRepository(db),
	}
}
