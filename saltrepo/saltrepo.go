// Copyright 2026 Mikhail Klementev. All rights reserved.
// Use of this source code is governed by a AGPLv3 license
// (or later) that can be found in the LICENSE file.

package saltrepo

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/PuerkitoBio/goquery"
	"github.com/cavaliergopher/grab/v3"
	"github.com/rapidloop/skv"
	"github.com/rs/zerolog/log"

	"code.dumpstack.io/tools/salt-bootstrap/config/dotfiles"
	"code.dumpstack.io/tools/salt-bootstrap/dispatch"
)

// Base is the package repository URL for the runtime context:
// {root}/{distro}/{major}.{minor}/{arch}/{channel}. The channel is
// the pinned version for stable installs (or "latest"), "testing",
// or "daily".
func Base(e *dispatch.Env) string {
	root := e.Options.RepoURL

	release := e.Context.Major
	if e.Context.Minor != "" {
		release += "." + e.Context.Minor
	}

	channel := "latest"
	switch e.Context.Type {
	case dispatch.Stable:
		if e.Options.Version != "" {
			channel = "minor/" + e.Options.Version
		}
	case dispatch.Testing:
		channel = "testing"
	case dispatch.Daily:
		channel = "daily"
	}

	u, err := url.JoinPath(root, e.Context.Distro, release,
		e.Context.Arch, channel)
	if err != nil {
		// root comes from config defaults; a broken override is
		// caught by the first download anyway
		u = strings.Join([]string{root, e.Context.Distro, release,
			e.Context.Arch, channel}, "/")
	}
	return u
}

// MinorIndex is the directory listing of every pinned version the
// repository carries for the runtime context. LatestVersion scrapes
// it to turn "latest" into a concrete version.
func MinorIndex(e *dispatch.Env) string {
	release := e.Context.Major
	if e.Context.Minor != "" {
		release += "." + e.Context.Minor
	}

	u, err := url.JoinPath(e.Options.RepoURL, e.Context.Distro,
		release, e.Context.Arch, "minor")
	if err != nil {
		u = strings.Join([]string{e.Options.RepoURL,
			e.Context.Distro, release, e.Context.Arch,
			"minor"}, "/")
	}
	return u
}

// KeyURL points at the repository signing key.
func KeyURL(e *dispatch.Env) string {
	return Base(e) + "/salt-archive-keyring.gpg"
}

// Fetch downloads fileurl into dst and returns the downloaded file
// path. Plain http is refused unless the insecure toggle is set.
func Fetch(e *dispatch.Env, fileurl, dst string) (path string, err error) {
	if strings.HasPrefix(fileurl, "http://") && !e.Options.Insecure {
		err = fmt.Errorf("refusing insecure download of %s "+
			"(use the insecure flag to override)", fileurl)
		return
	}

	log.Debug().Msgf("fetch %s", fileurl)

	resp, err := grab.Get(dst, fileurl)
	if err != nil {
		err = fmt.Errorf("cannot download %s: %v", fileurl, err)
		return
	}

	path = resp.Filename
	return
}

// FetchKey places the repository signing key at dst.
func FetchKey(e *dispatch.Env, dst string) (err error) {
	tmp, err := os.MkdirTemp(dotfiles.Dir("tmp"), "key_")
	if err != nil {
		return
	}
	defer os.RemoveAll(tmp)

	path, err := Fetch(e, KeyURL(e), tmp)
	if err != nil {
		return
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		return
	}

	err = os.MkdirAll(filepath.Dir(dst), os.ModePerm)
	if err != nil {
		return
	}

	return os.WriteFile(dst, buf, 0644)
}

var versionCacheTTL = 24 * time.Hour

type cachedVersion struct {
	Version string
	Fetched time.Time
}

// LatestVersion resolves the newest salt release published on the
// repository index page. Lookups are cached on disk so repeated runs
// do not hammer the repo server.
func LatestVersion(indexURL string) (version string, err error) {
	store, err := skv.Open(dotfiles.File("cache/versions.db"))
	if err == nil {
		defer store.Close()

		var entry cachedVersion
		if store.Get(indexURL, &entry) == nil &&
			time.Since(entry.Fetched) < versionCacheTTL {

			log.Debug().Msgf("latest version %s (cached)", entry.Version)
			return entry.Version, nil
		}
	} else {
		log.Debug().Err(err).Msg("version cache unavailable")
		store = nil
	}

	version, err = scrapeLatest(indexURL)
	if err != nil {
		return
	}

	if store != nil {
		cerr := store.Put(indexURL, cachedVersion{version, time.Now()})
		if cerr != nil {
			log.Debug().Err(cerr).Msg("version cache put")
		}
	}
	return
}

func scrapeLatest(indexURL string) (version string, err error) {
	resp, err := http.Get(indexURL)
	if err != nil {
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("%s: %s", indexURL, resp.Status)
		return
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return
	}

	var latest *semver.Version
	doc.Find("a").Each(func(i int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists {
			return
		}

		v, verr := semver.NewVersion(strings.TrimSuffix(href, "/"))
		if verr != nil {
			return
		}

		if latest == nil || v.GreaterThan(latest) {
			latest = v
		}
	})

	if latest == nil {
		err = errors.New("no versions found on " + indexURL)
		return
	}

	version = latest.String()
	return
}
