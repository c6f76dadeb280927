package gutendex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestPlainTextURL(t *testing.T) {
	Convey("纯文本格式选择", t, func() {
		Convey("优先 utf-8 纯文本", func() {
			u := plainTextURL(map[string]string{
				"text/plain; charset=utf-8":    "https://example.com/utf8.txt",
				"text/plain; charset=us-ascii": "https://example.com/ascii.txt",
				"text/html":                    "https://example.com/book.html",
			})
			So(u, ShouldEqual, "https://example.com/utf8.txt")
		})

		Convey("没有 utf-8 时退回 us-ascii，再退回裸 text/plain", func() {
			u := plainTextURL(map[string]string{
				"text/plain; charset=us-ascii": "https://example.com/ascii.txt",
				"text/plain":                   "https://example.com/plain.txt",
			})
			So(u, ShouldEqual, "https://example.com/ascii.txt")

			u = plainTextURL(map[string]string{
				"text/plain": "https://example.com/plain.txt",
			})
			So(u, ShouldEqual, "https://example.com/plain.txt")
		})

		Convey("没有任何纯文本格式返回空串", func() {
			u := plainTextURL(map[string]string{
				"application/epub+zip": "https://example.com/book.epub",
			})
			So(u, ShouldBeEmpty)
		})
	})
}

func TestClientSearch(t *testing.T) {
	ctx := context.Background()

	Convey("书目检索", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/books" {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"results": [
					{
						"id": 1342,
						"title": "Pride and Prejudice",
						"authors": [{"name": "Austen, Jane"}],
						"formats": {
							"text/plain; charset=utf-8": "https://example.com/1342.txt",
							"text/html": "https://example.com/1342.html"
						}
					},
					{
						"id": 84,
						"title": "Frankenstein",
						"authors": [],
						"formats": {"application/epub+zip": "https://example.com/84.epub"}
					}
				]
			}`))
		}))
		defer srv.Close()

		client := NewClient(srv.URL)

		Convey("返回书目与纯文本地址", func() {
			books, err := client.Search(ctx, "pride", 5)
			So(err, ShouldBeNil)
			So(len(books), ShouldEqual, 2)
			So(books[0].ID, ShouldEqual, 1342)
			So(books[0].Author, ShouldEqual, "Austen, Jane")
			So(books[0].TextURL, ShouldEqual, "https://example.com/1342.txt")
			So(books[1].Author, ShouldBeEmpty)
			So(books[1].TextURL, ShouldBeEmpty)
		})

		Convey("limit 截断结果", func() {
			books, err := client.Search(ctx, "pride", 1)
			So(err, ShouldBeNil)
			So(len(books), ShouldEqual, 1)
		})

		Convey("空标题直接报错", func() {
			_, err := client.Search(ctx, "", 5)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestClientFetchText(t *testing.T) {
	ctx := context.Background()

	Convey("全文下载", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("It is a truth universally acknowledged..."))
		}))
		defer srv.Close()

		client := NewClient("")

		Convey("按 text_url 下载全文", func() {
			text, err := client.FetchText(ctx, Book{ID: 1342, TextURL: srv.URL + "/1342.txt"})
			So(err, ShouldBeNil)
			So(text, ShouldContainSubstring, "universally acknowledged")
		})

		Convey("缺少纯文本地址时报错", func() {
			_, err := client.FetchText(ctx, Book{ID: 84})
			So(err, ShouldNotBeNil)
		})
	})
}
