package deploy

import (
	"fmt"

	"github.com/joho/godotenv"

	"github.com/specialistvlad/blockgrid/internal/storage"
)

// EnvDir is the per-user directory holding project env files.
const EnvDir = ".blockgrid"

// LoadProjectEnv reads `<home>/.blockgrid/<projectId>/.env`. A missing file
// yields an empty map.
func LoadProjectEnv(s storage.Store, home, projectID string) (map[string]string, error) {
	path := s.Join(home, EnvDir, projectID, ".env")
	ok, err := s.Exists(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return map[string]string{}, nil
	}
	data, err := s.ReadFile(path)
	if err != nil {
		return nil, err
	}
	env, err := godotenv.UnmarshalBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return env, nil
}
