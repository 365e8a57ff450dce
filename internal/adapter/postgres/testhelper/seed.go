package testhelper

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakubTuta/minsik-ingestion/internal/domain"
)

// uniqueSuffix returns a short unique string for generating non-conflicting test data.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// SeedAuthor creates an author row with a unique name/slug and returns it.
func SeedAuthor(t *testing.T, pool *pgxpool.Pool) domain.Author {
	t.Helper()
	ctx := context.Background()

	suffix := uniqueSuffix()
	olid := "OL" + suffix + "A"
	author := domain.Author{
		Name:          "Test Author " + suffix,
		Slug:          "test-author-" + suffix,
		OpenLibraryID: &olid,
	}

	err := pool.QueryRow(ctx,
		`INSERT INTO authors (name, slug, open_library_id)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		author.Name, author.Slug, author.OpenLibraryID,
	).Scan(&author.ID)
	if err != nil {
		t.Fatalf("testhelper: SeedAuthor insert: %v", err)
	}

	return author
}

// SeedBook creates a book row in the given language with a unique title/slug
// and returns it. The open_library_id is a fresh synthetic work OLID.
func SeedBook(t *testing.T, pool *pgxpool.Pool, language string) domain.Book {
	t.Helper()
	ctx := context.Background()

	suffix := uniqueSuffix()
	olid := "OL" + suffix + "W"
	desc := "Seed description " + suffix
	cover := "https://covers.openlibrary.org/b/id/1-L.jpg"
	book := domain.Book{
		Title:         "Test Book " + suffix,
		Language:      language,
		Slug:          "test-book-" + suffix,
		Description:   &desc,
		CoverURL:      &cover,
		OpenLibraryID: &olid,
	}

	err := pool.QueryRow(ctx,
		`INSERT INTO books (title, language, slug, description, cover_url, open_library_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		book.Title, book.Language, book.Slug, book.Description, book.CoverURL, book.OpenLibraryID,
	).Scan(&book.ID)
	if err != nil {
		t.Fatalf("testhelper: SeedBook insert: %v", err)
	}

	return book
}

// SeedGenre creates a genre row and returns its ID.
func SeedGenre(t *testing.T, pool *pgxpool.Pool) (int64, domain.GenreTag) {
	t.Helper()
	ctx := context.Background()

	suffix := uniqueSuffix()
	genre := domain.GenreTag{
		Name: "Test Genre " + suffix,
		Slug: "test-genre-" + suffix,
	}

	var id int64
	err := pool.QueryRow(ctx,
		`INSERT INTO genres (name, slug) VALUES ($1, $2) RETURNING id`,
		genre.Name, genre.Slug,
	).Scan(&id)
	if err != nil {
		t.Fatalf("testhelper: SeedGenre insert: %v", err)
	}

	return id, genre
}

// SeedSeries creates a series row and returns its ID.
func SeedSeries(t *testing.T, pool *pgxpool.Pool) int64 {
	t.Helper()
	ctx := context.Background()

	var id int64
	err := pool.QueryRow(ctx,
		`INSERT INTO series (name) VALUES ($1) RETURNING id`,
		"Test Series "+uniqueSuffix(),
	).Scan(&id)
	if err != nil {
		t.Fatalf("testhelper: SeedSeries insert: %v", err)
	}

	return id
}

// LinkBookAuthor inserts a book_authors relation.
func LinkBookAuthor(t *testing.T, pool *pgxpool.Pool, bookID, authorID int64) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`INSERT INTO book_authors (book_id, author_id) VALUES ($1, $2)`,
		bookID, authorID,
	)
	if err != nil {
		t.Fatalf("testhelper: LinkBookAuthor insert: %v", err)
	}
}

// LinkBookGenre inserts a book_genres relation.
func LinkBookGenre(t *testing.T, pool *pgxpool.Pool, bookID, genreID int64) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`INSERT INTO book_genres (book_id, genre_id) VALUES ($1, $2)`,
		bookID, genreID,
	)
	if err != nil {
		t.Fatalf("testhelper: LinkBookGenre insert: %v", err)
	}
}
