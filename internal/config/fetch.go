package config

import (
	"context"
	"fmt"
	"os"

	get "github.com/hashicorp/go-getter"
)

// Fetch downloads the configuration bundle at src into dst. src is any
// go-getter address: a local path, an http(s) archive, or a
// git::https://host/repo//subdir reference.
func Fetch(ctx context.Context, src, dst string) error {
	pwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("working directory: %w", err)
	}
	client := &get.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  dst,
		Pwd:  pwd,
		Mode: get.ClientModeAny,
	}
	if err := client.Get(); err != nil {
		return fmt.Errorf("fetch %s: %w", src, err)
	}
	return nil
}
