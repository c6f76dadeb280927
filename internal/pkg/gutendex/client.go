package gutendex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// Gutendex（古腾堡计划元数据 API）客户端
// 只做标题检索与纯文本下载，公版书用于流水线冒烟与演示

// DefaultBaseURL 默认 API 地址
const DefaultBaseURL = "https://gutendex.com"

// Book 检索结果中的一本书
type Book struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Author  string `json:"author"`
	TextURL string `json:"text_url"` // 纯文本格式下载地址，可能为空
}

// Client Gutendex 客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient 创建 Gutendex 客户端
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type searchResponse struct {
	Results []struct {
		ID      int    `json:"id"`
		Title   string `json:"title"`
		Authors []struct {
			Name string `json:"name"`
		} `json:"authors"`
		Formats map[string]string `json:"formats"`
	} `json:"results"`
}

// Search 按标题检索书目
func (c *Client) Search(ctx context.Context, title string, limit int) ([]Book, error) {
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if limit <= 0 {
		limit = 5
	}

	reqURL := fmt.Sprintf("%s/books?search=%s", c.baseURL, url.QueryEscape(title))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gutendex returned status %d: %s", resp.StatusCode, string(body))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	var books []Book
	for _, r := range sr.Results {
		if len(books) >= limit {
			break
		}
		book := Book{ID: r.ID, Title: r.Title}
		if len(r.Authors) > 0 {
			book.Author = r.Authors[0].Name
		}
		book.TextURL = plainTextURL(r.Formats)
		books = append(books, book)
	}

	log.Info().
		Str("title", title).
		Int("results", len(books)).
		Msg("古腾堡书目检索完成")

	return books, nil
}

// FetchText 下载一本书的纯文本全文
func (c *Client) FetchText(ctx context.Context, book Book) (string, error) {
	if book.TextURL == "" {
		return "", fmt.Errorf("book %d has no plain text format", book.ID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, book.TextURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download text: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("text download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read text body: %w", err)
	}

	log.Info().
		Int("book_id", book.ID).
		Int("bytes", len(data)).
		Msg("古腾堡全文下载完成")

	return string(data), nil
}

// plainTextURL 从 formats 映射里挑纯文本格式
func plainTextURL(formats map[string]string) string {
	for _, key := range []string{
		"text/plain; charset=utf-8",
		"text/plain; charset=us-ascii",
		"text/plain",
	} {
		if u, ok := formats[key]; ok {
			return u
		}
	}
	return ""
}
