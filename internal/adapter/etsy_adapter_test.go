package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeEtsy 模拟 Etsy v3 管线：users/me -> 建草稿 -> 传图 -> 激活
type fakeEtsy struct {
	srv          *httptest.Server
	imageUploads int
	activated    bool
	failImageAt  int // 第 N 张图返回 500，0 表示不失败
}

func newFakeEtsy(t *testing.T) *fakeEtsy {
	t.Helper()
	f := &fakeEtsy{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v3/application/users/me", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int64{"shop_id": 777})
	})
	mux.HandleFunc("POST /v3/application/shops/777/listings", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int64{"listing_id": 888})
	})
	mux.HandleFunc("POST /v3/application/shops/777/listings/888/images", func(w http.ResponseWriter, r *http.Request) {
		f.imageUploads++
		if f.failImageAt > 0 && f.imageUploads == f.failImageAt {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int64{"listing_image_id": int64(f.imageUploads)})
	})
	mux.HandleFunc("PATCH /v3/application/shops/777/listings/888", func(w http.ResponseWriter, r *http.Request) {
		f.activated = true
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"state": "active"})
	})
	// 图片源站
	mux.HandleFunc("GET /photos/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fake-jpeg-bytes"))
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeEtsy) photoURLs(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("%s/photos/%d.jpg", f.srv.URL, i+1)
	}
	return urls
}

func TestEtsyAdapterPipeline(t *testing.T) {
	f := newFakeEtsy(t)
	a := NewEtsyAdapter(&EtsyConfig{BaseURL: f.srv.URL, APIKey: "key"},
		&Credential{AccessToken: "tok"})

	spec := &ListingSpec{
		ListingID: 1,
		SKU:       "CL-1-etsy",
		Title:     "Handmade Mug",
		Price:     25,
		Category:  "craft",
		Photos:    f.photoURLs(3),
	}

	handle, err := a.CreateDraft(context.Background(), spec)
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}
	if handle.ExternalID != "888" {
		t.Errorf("ExternalID = %s", handle.ExternalID)
	}
	if handle.Extra["shop_id"] != "777" {
		t.Errorf("shop_id = %s", handle.Extra["shop_id"])
	}

	outcome, err := a.Publish(context.Background(), handle)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if f.imageUploads != 3 {
		t.Errorf("应上传 3 张图片, got %d", f.imageUploads)
	}
	if !f.activated {
		t.Error("发布后应置为 active")
	}
	if outcome.ExternalURL != "https://www.etsy.com/listing/888" {
		t.Errorf("ExternalURL = %s", outcome.ExternalURL)
	}
}

func TestEtsyAdapterTruncatesImagesAtLimit(t *testing.T) {
	f := newFakeEtsy(t)
	a := NewEtsyAdapter(&EtsyConfig{BaseURL: f.srv.URL, APIKey: "key"},
		&Credential{AccessToken: "tok"})

	handle, err := a.CreateDraft(context.Background(), &ListingSpec{
		SKU:    "CL-2-etsy",
		Title:  "Many Photos",
		Photos: f.photoURLs(14),
	})
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}
	if _, err := a.Publish(context.Background(), handle); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if f.imageUploads != etsyMaxImages {
		t.Errorf("超出上限应截断为 %d 张, got %d", etsyMaxImages, f.imageUploads)
	}
}

func TestEtsyAdapterAbortsOnImageFailure(t *testing.T) {
	f := newFakeEtsy(t)
	f.failImageAt = 2
	a := NewEtsyAdapter(&EtsyConfig{BaseURL: f.srv.URL, APIKey: "key"},
		&Credential{AccessToken: "tok"})

	handle, err := a.CreateDraft(context.Background(), &ListingSpec{
		SKU:    "CL-3-etsy",
		Title:  "Broken Upload",
		Photos: f.photoURLs(3),
	})
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}

	_, err = a.Publish(context.Background(), handle)
	if err == nil {
		t.Fatal("第二张图失败应中止发布")
	}
	if StepOf(err) != "upload_image_2" {
		t.Errorf("StepOf = %s", StepOf(err))
	}
	if f.imageUploads != 2 {
		t.Errorf("失败后不应继续上传, uploads = %d", f.imageUploads)
	}
	if f.activated {
		t.Error("传图失败后不应激活 listing")
	}
}

func TestEtsyAdapterNoShop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int64{"shop_id": 0})
	}))
	defer srv.Close()

	a := NewEtsyAdapter(&EtsyConfig{BaseURL: srv.URL, APIKey: "key"},
		&Credential{AccessToken: "tok"})
	_, err := a.CreateDraft(context.Background(), &ListingSpec{SKU: "CL-4-etsy"})
	if err == nil {
		t.Fatal("无店铺应返回错误")
	}
	if StepOf(err) != "resolve_shop" {
		t.Errorf("StepOf = %s", StepOf(err))
	}
}
