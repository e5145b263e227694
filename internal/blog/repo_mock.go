package blog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

var _ blogRepo = (*repoMock)(nil)

type repoMock struct {
	mutex  sync.Mutex
	posts  map[int]*Post
	nextID int
	// author names by id, stands in for the users join
	Authors map[int]string
}

func NewRepoMock() *repoMock {
	return &repoMock{
		posts:   make(map[int]*Post),
		nextID:  1,
		Authors: make(map[int]string),
	}
}

func (r *repoMock) Add(_ context.Context, post *Post) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := time.Now()
	post.ID = r.nextID
	r.nextID++
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now
	stored := *post
	r.posts[post.ID] = &stored
	return nil
}

func (r *repoMock) Update(_ context.Context, post *Post) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, ok := r.posts[post.ID]
	if !ok {
		return ErrPostNotFound
	}
	post.AuthorID = existing.AuthorID
	post.CreatedAt = existing.CreatedAt
	post.UpdatedAt = time.Now()
	stored := *post
	r.posts[post.ID] = &stored
	return nil
}

func (r *repoMock) Delete(_ context.Context, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.posts[id]; !ok {
		return ErrPostNotFound
	}
	delete(r.posts, id)
	return nil
}

func (r *repoMock) Get(_ context.Context, id int) (*Post, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	p, ok := r.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	post := r.withAuthor(*p)
	return &post, nil
}

func (r *repoMock) GetPublishedBySlug(_ context.Context, slug string) (*Post, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, p := range r.posts {
		if p.Slug == slug && p.Published {
			post := r.withAuthor(*p)
			return &post, nil
		}
	}
	return nil, ErrPostNotFound
}

func (r *repoMock) ListPublished(_ context.Context, search string, limit, offset int) ([]Post, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	posts := r.published(search)
	if offset >= len(posts) {
		return []Post{}, nil
	}
	end := offset + limit
	if end > len(posts) {
		end = len(posts)
	}
	return posts[offset:end], nil
}

func (r *repoMock) CountPublished(_ context.Context, search string) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.published(search)), nil
}

func (r *repoMock) All(_ context.Context) ([]Post, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	posts := make([]Post, 0, len(r.posts))
	for _, p := range r.posts {
		posts = append(posts, r.withAuthor(*p))
	}
	sortNewestFirst(posts)
	return posts, nil
}

func (r *repoMock) CountMentions(_ context.Context, terms []string) ([]Category, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	categories := make([]Category, 0, len(terms))
	for _, name := range terms {
		term := strings.ToLower(name)
		c := Category{Name: name}
		for _, p := range r.posts {
			if !p.Published {
				continue
			}
			if strings.Contains(strings.ToLower(p.Title), term) ||
				strings.Contains(strings.ToLower(p.Excerpt), term) ||
				strings.Contains(strings.ToLower(p.Content), term) {
				c.Count++
			}
		}
		categories = append(categories, c)
	}
	return categories, nil
}

func (r *repoMock) SlugTaken(_ context.Context, slug string, excludeID int) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for id, p := range r.posts {
		if p.Slug == slug && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *repoMock) published(search string) []Post {
	search = strings.ToLower(search)
	posts := []Post{}
	for _, p := range r.posts {
		if !p.Published {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Title), search) &&
			!strings.Contains(strings.ToLower(p.Excerpt), search) {
			continue
		}
		posts = append(posts, r.withAuthor(*p))
	}
	sortNewestFirst(posts)
	return posts
}

func (r *repoMock) withAuthor(p Post) Post {
	if p.AuthorID != nil {
		p.AuthorName = r.Authors[*p.AuthorID]
	}
	return p
}

func sortNewestFirst(posts []Post) {
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].ID > posts[j].ID
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}
