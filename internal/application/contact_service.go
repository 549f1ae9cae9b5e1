package application

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/yudhapratama/contactbook/internal/domain/entity"
	"github.com/yudhapratama/contactbook/internal/domain/repository"
)

// ErrContactNotFound is surfaced when a contact id does not exist for the user.
var ErrContactNotFound = errors.New("contact not found")

// ContactService implements the per-user address book. Elasticsearch backs the
// full-text search endpoint; the SQL repository stays the store of record.
type ContactService struct {
	Repo    repository.ContactRepository
	ES      *elasticsearch.Client
	ESIndex string
	Logger  *logrus.Logger
}

func NewContactService(repo repository.ContactRepository, es *elasticsearch.Client, esIndex string, logger *logrus.Logger) *ContactService {
	return &ContactService{Repo: repo, ES: es, ESIndex: esIndex, Logger: logger}
}

type ContactInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Birthday  time.Time
}

func (s *ContactService) Create(ctx context.Context, userID string, in ContactInput) (*entity.Contact, error) {
	c := &entity.Contact{
		UserID:    userID,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Phone:     in.Phone,
		Birthday:  in.Birthday,
	}
	if err := s.Repo.Create(ctx, c); err != nil {
		return nil, mapInfraErr(err)
	}
	s.index(ctx, c)
	return c, nil
}

func (s *ContactService) Get(ctx context.Context, userID, id string) (*entity.Contact, error) {
	c, err := s.Repo.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, mapInfraErr(err)
	}
	return c, nil
}

// List returns the user's contacts, optionally filtered by a substring match
// on name or email.
func (s *ContactService) List(ctx context.Context, userID, q string) ([]*entity.Contact, error) {
	contacts, err := s.Repo.List(ctx, userID, q)
	if err != nil {
		return nil, mapInfraErr(err)
	}
	return contacts, nil
}

func (s *ContactService) Update(ctx context.Context, userID, id string, in ContactInput) (*entity.Contact, error) {
	c, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	c.FirstName = in.FirstName
	c.LastName = in.LastName
	c.Email = in.Email
	c.Phone = in.Phone
	c.Birthday = in.Birthday
	if err := s.Repo.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, mapInfraErr(err)
	}
	s.index(ctx, c)
	return c, nil
}

func (s *ContactService) Delete(ctx context.Context, userID, id string) error {
	if err := s.Repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrContactNotFound
		}
		return mapInfraErr(err)
	}
	s.deleteIndex(ctx, id)
	return nil
}

func (s *ContactService) UpcomingBirthdays(ctx context.Context, userID string) ([]*entity.Contact, error) {
	contacts, err := s.Repo.UpcomingBirthdays(ctx, userID, 7)
	if err != nil {
		return nil, mapInfraErr(err)
	}
	return contacts, nil
}

func (s *ContactService) index(ctx context.Context, c *entity.Contact) {
	if s.ES == nil || s.ESIndex == "" {
		return
	}
	doc := map[string]any{
		"id":         c.ID,
		"user_id":    c.UserID,
		"first_name": c.FirstName,
		"last_name":  c.LastName,
		"email":      c.Email,
		"phone":      c.Phone,
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESIndex, DocumentID: c.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	cx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(cx, s.ES)
	if err != nil {
		s.Logger.WithError(err).WithField("contact_id", c.ID).Warn("es index failed")
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		s.Logger.WithField("status", res.Status()).WithField("contact_id", c.ID).Warn("es index response error")
	}
}

func (s *ContactService) deleteIndex(ctx context.Context, id string) {
	if s.ES == nil || s.ESIndex == "" {
		return
	}
	req := esapi.DeleteRequest{Index: s.ESIndex, DocumentID: id}
	cx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(cx, s.ES)
	if err != nil {
		s.Logger.WithError(err).WithField("contact_id", id).Warn("es delete failed")
		return
	}
	_ = res.Body.Close()
}

// Search performs a multi_match query on name, email, and phone, scoped to the
// user. Falls back to the SQL filter when Elasticsearch is not configured.
func (s *ContactService) Search(ctx context.Context, userID, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESIndex == "" {
		contacts, err := s.List(ctx, userID, q)
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, 0, len(contacts))
		for _, c := range contacts {
			out = append(out, map[string]any{
				"id":         c.ID,
				"user_id":    c.UserID,
				"first_name": c.FirstName,
				"last_name":  c.LastName,
				"email":      c.Email,
				"phone":      c.Phone,
			})
		}
		return out, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":  q,
						"fields": []string{"first_name^2", "last_name^2", "email", "phone"},
					},
				},
				"filter": map[string]any{
					"term": map[string]any{"user_id": userID},
				},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	cx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(
		s.ES.Search.WithContext(cx),
		s.ES.Search.WithIndex(s.ESIndex),
		s.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, mapInfraErr(err)
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
