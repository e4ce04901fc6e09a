package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Project is a long-form writing project.
type Project struct {
	ID                string
	Name              string
	Description       string
	CreationTimestamp int64
}

// Chapter belongs to a project and carries an explicit position.
type Chapter struct {
	ID                string
	ProjectID         string
	Title             string
	Position          int64
	CreationTimestamp int64
}

// Scene belongs to a chapter.
type Scene struct {
	ID                string
	ChapterID         string
	Title             string
	Content           string
	Goals             string
	Conflicts         string
	Outcomes          string
	CreationTimestamp int64
}

// ProjectBundle is a project with its chapters and scenes.
type ProjectBundle struct {
	Project  *Project
	Chapters []*Chapter
	Scenes   []*Scene
}

// CreateProject inserts a writing project.
func (s *Store) CreateProject(name, description string) (*Project, error) {
	project := &Project{
		ID:                uuid.New().String(),
		Name:              name,
		Description:       description,
		CreationTimestamp: time.Now().UnixMicro(),
	}
	_, err := s.db.Exec(`
		INSERT INTO writer_projects (id, name, description, created_at)
		VALUES (?, ?, ?, ?)
	`, project.ID, project.Name, project.Description, project.CreationTimestamp)
	if err != nil {
		return nil, errors.Wrap(err, "inserting project")
	}
	return project, nil
}

// ListProjects returns all projects, newest first.
func (s *Store) ListProjects() ([]*Project, error) {
	rows, err := s.db.Query(`
		SELECT id, name, description, created_at
		FROM writer_projects
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "querying projects")
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		project := &Project{}
		if err := rows.Scan(&project.ID, &project.Name, &project.Description, &project.CreationTimestamp); err != nil {
			return nil, errors.Wrap(err, "scanning project row")
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating project rows")
	}
	return projects, nil
}

// OpenProject loads a project with all its chapters and scenes.
func (s *Store) OpenProject(projectID string) (*ProjectBundle, error) {
	project := &Project{}
	err := s.db.QueryRow(`
		SELECT id, name, description, created_at
		FROM writer_projects
		WHERE id = ?
	`, projectID).Scan(&project.ID, &project.Name, &project.Description, &project.CreationTimestamp)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(ErrNotFound, "project")
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying project")
	}

	chapterRows, err := s.db.Query(`
		SELECT id, project_id, title, position, created_at
		FROM writer_chapters
		WHERE project_id = ?
		ORDER BY position ASC
	`, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "querying chapters")
	}
	defer chapterRows.Close()

	var chapters []*Chapter
	for chapterRows.Next() {
		chapter := &Chapter{}
		if err := chapterRows.Scan(&chapter.ID, &chapter.ProjectID, &chapter.Title,
			&chapter.Position, &chapter.CreationTimestamp); err != nil {
			return nil, errors.Wrap(err, "scanning chapter row")
		}
		chapters = append(chapters, chapter)
	}
	if err := chapterRows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating chapter rows")
	}

	sceneRows, err := s.db.Query(`
		SELECT s.id, s.chapter_id, s.title, s.content, s.goals, s.conflicts, s.outcomes, s.created_at
		FROM writer_scenes s
		INNER JOIN writer_chapters c ON s.chapter_id = c.id
		WHERE c.project_id = ?
		ORDER BY s.created_at ASC
	`, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "querying scenes")
	}
	defer sceneRows.Close()

	var scenes []*Scene
	for sceneRows.Next() {
		scene := &Scene{}
		if err := sceneRows.Scan(&scene.ID, &scene.ChapterID, &scene.Title, &scene.Content,
			&scene.Goals, &scene.Conflicts, &scene.Outcomes, &scene.CreationTimestamp); err != nil {
			return nil, errors.Wrap(err, "scanning scene row")
		}
		scenes = append(scenes, scene)
	}
	if err := sceneRows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating scene rows")
	}

	return &ProjectBundle{Project: project, Chapters: chapters, Scenes: scenes}, nil
}

// CreateChapter appends a chapter at the next position of a project.
func (s *Store) CreateChapter(projectID, title string) (*Chapter, error) {
	var position int64
	err := s.db.QueryRow(`
		SELECT COALESCE(MAX(position), 0) + 1 FROM writer_chapters WHERE project_id = ?
	`, projectID).Scan(&position)
	if err != nil {
		return nil, errors.Wrap(err, "querying next chapter position")
	}

	chapter := &Chapter{
		ID:                uuid.New().String(),
		ProjectID:         projectID,
		Title:             title,
		Position:          position,
		CreationTimestamp: time.Now().UnixMicro(),
	}
	_, err = s.db.Exec(`
		INSERT INTO writer_chapters (id, project_id, title, position, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, chapter.ID, chapter.ProjectID, chapter.Title, chapter.Position, chapter.CreationTimestamp)
	if err != nil {
		return nil, errors.Wrap(err, "inserting chapter")
	}
	return chapter, nil
}

// ReorderChapters rewrites chapter positions to match the given id order.
func (s *Store) ReorderChapters(projectID string, orderedIDs []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	for index, chapterID := range orderedIDs {
		_, err := tx.Exec(`
			UPDATE writer_chapters SET position = ? WHERE id = ? AND project_id = ?
		`, int64(index)+1, chapterID, projectID)
		if err != nil {
			return errors.Wrap(err, "updating chapter position")
		}
	}

	return errors.Wrap(tx.Commit(), "committing transaction")
}

// InsertScene appends a scene to a chapter.
func (s *Store) InsertScene(scene *Scene) error {
	_, err := s.db.Exec(`
		INSERT INTO writer_scenes (id, chapter_id, title, content, goals, conflicts, outcomes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, scene.ID, scene.ChapterID, scene.Title, scene.Content, scene.Goals,
		scene.Conflicts, scene.Outcomes, scene.CreationTimestamp)
	return errors.Wrap(err, "inserting scene")
}

// GetScene returns the scene with the given id.
func (s *Store) GetScene(sceneID string) (*Scene, error) {
	scene := &Scene{}
	err := s.db.QueryRow(`
		SELECT id, chapter_id, title, content, goals, conflicts, outcomes, created_at
		FROM writer_scenes
		WHERE id = ?
	`, sceneID).Scan(&scene.ID, &scene.ChapterID, &scene.Title, &scene.Content,
		&scene.Goals, &scene.Conflicts, &scene.Outcomes, &scene.CreationTimestamp)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(ErrNotFound, "scene")
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying scene")
	}
	return scene, nil
}

// UpdateSceneContent rewrites a scene's content.
func (s *Store) UpdateSceneContent(sceneID, content string) error {
	_, err := s.db.Exec(`UPDATE writer_scenes SET content = ? WHERE id = ?`, content, sceneID)
	return errors.Wrap(err, "updating scene content")
}

// SaveConsistencyReport persists a consistency report payload for a project.
func (s *Store) SaveConsistencyReport(projectID, payload string) (string, error) {
	reportID := uuid.New().String()
	_, err := s.db.Exec(`
		INSERT INTO writer_consistency_reports (id, project_id, payload, created_at)
		VALUES (?, ?, ?, ?)
	`, reportID, projectID, payload, time.Now().UnixMicro())
	if err != nil {
		return "", errors.Wrap(err, "inserting consistency report")
	}
	return reportID, nil
}

// RecordExport records an export artifact produced for a project.
func (s *Store) RecordExport(projectID, exportType, outputPath string) error {
	_, err := s.db.Exec(`
		INSERT INTO writer_exports (id, project_id, export_type, output_path, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.New().String(), projectID, exportType, outputPath, time.Now().UnixMicro())
	return errors.Wrap(err, "inserting export record")
}
