package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paraflux/mdimg/internal/uploadclient"
)

func main() {
	var (
		serverURL = flag.String("server", "http://localhost:8080", "mdimg API base URL")
		token     = flag.String("token", "", "access token (from /v1/auth/login)")
		email     = flag.String("email", "", "login email (alternative to -token)")
		password  = flag.String("password", "", "login password")
		list      = flag.Bool("list", false, "list uploaded images instead of uploading")
	)
	flag.Parse()

	ctx := context.Background()
	api := uploadclient.NewClient(*serverURL, *token)

	if *token == "" && *email != "" {
		issued, err := api.Login(ctx, *email, *password)
		if err != nil {
			fatalf("login: %v", err)
		}
		api.SetToken(issued)
	}

	if *list {
		listImages(ctx, api)
		return
	}

	if flag.NArg() != 1 {
		fatalf("usage: uploader [flags] <file.svg|file.png>")
	}
	upload(ctx, api, flag.Arg(0))
}

func upload(ctx context.Context, api *uploadclient.Client, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fatalf("read file: %v", err)
	}

	contentType, err := contentTypeFor(path)
	if err != nil {
		fatalf("%v", err)
	}

	workflow := uploadclient.NewWorkflow(api)
	if err := workflow.Select(filepath.Base(path), contentType, data); err != nil {
		fatalf("select: %v", err)
	}

	result, err := workflow.Upload(ctx)
	if err != nil {
		fatalf("upload: %v", err)
	}

	fmt.Printf("uploaded %s (%s)\n", result.Record.BlobID, result.Record.Format)

	// re-query the gallery for the resolved URL of the fresh upload
	images, err := api.ListImages(ctx)
	if err != nil || len(images) == 0 || images[0].URL == "" {
		fmt.Println("image stored; URL not yet resolvable")
		return
	}
	fmt.Println(uploadclient.MarkdownSnippet(images[0].URL))
}

func listImages(ctx context.Context, api *uploadclient.Client) {
	images, err := api.ListImages(ctx)
	if err != nil {
		fatalf("list images: %v", err)
	}

	if len(images) == 0 {
		fmt.Println("no images uploaded yet")
		return
	}

	for _, img := range images {
		url := img.URL
		if url == "" {
			url = "(unresolvable)"
		}
		fmt.Printf("%s  %s  %s  %s\n", img.CreatedAt.Format("2006-01-02 15:04:05"), img.Format, img.ID, url)
	}
}

func contentTypeFor(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg":
		return uploadclient.ContentTypeSVG, nil
	case ".png":
		return uploadclient.ContentTypePNG, nil
	default:
		return "", fmt.Errorf("unsupported file extension %q: only .svg and .png are accepted", filepath.Ext(path))
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
