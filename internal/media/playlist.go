package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/Eyevinn/hls-m3u8/m3u8"
	"github.com/stwalsh4118/reelplay/internal/logger"
)

var (
	// ErrLivePlaylist is returned for HLS playlists without an end marker
	ErrLivePlaylist = errors.New("live playlist has no fixed duration")

	// ErrNotProbed is returned for non-playlist assets when no other prober is configured
	ErrNotProbed = errors.New("no prober configured for asset")
)

const maxPlaylistBytes = 4 << 20

// PlaylistProber reads HLS playlist durations directly and hands every other
// asset to the next prober
type PlaylistProber struct {
	next   DurationProber
	client *http.Client
}

// NewPlaylistProber wraps next. A nil client uses http.DefaultClient.
func NewPlaylistProber(next DurationProber, client *http.Client) *PlaylistProber {
	if client == nil {
		client = http.DefaultClient
	}
	return &PlaylistProber{next: next, client: client}
}

// IsPlaylist reports whether asset points at an HLS playlist
func IsPlaylist(asset string) bool {
	p := asset
	if u, err := url.Parse(asset); err == nil && u.Path != "" {
		p = u.Path
	}
	return strings.EqualFold(path.Ext(p), ".m3u8")
}

// ProbeDuration sums the segment durations of an HLS media playlist. A master
// playlist is resolved through its first variant.
func (p *PlaylistProber) ProbeDuration(ctx context.Context, asset string) (time.Duration, error) {
	if !IsPlaylist(asset) {
		if p.next == nil {
			return 0, ErrNotProbed
		}
		return p.next.ProbeDuration(ctx, asset)
	}

	playlist, listType, err := p.decode(ctx, asset)
	if err != nil {
		return 0, err
	}

	if listType == m3u8.MASTER {
		master := playlist.(*m3u8.MasterPlaylist)
		if len(master.Variants) == 0 || master.Variants[0] == nil {
			return 0, fmt.Errorf("%w: master playlist has no variants", ErrInvalidAsset)
		}
		variant, err := resolveReference(asset, master.Variants[0].URI)
		if err != nil {
			return 0, err
		}
		playlist, listType, err = p.decode(ctx, variant)
		if err != nil {
			return 0, err
		}
		if listType != m3u8.MEDIA {
			return 0, fmt.Errorf("%w: variant is not a media playlist", ErrInvalidAsset)
		}
	}

	d, err := mediaDuration(playlist.(*m3u8.MediaPlaylist))
	if err != nil {
		return 0, err
	}

	logger.Log.Debug().
		Str("asset", asset).
		Dur("duration", d).
		Msg("Read HLS playlist duration")

	return d, nil
}

func mediaDuration(playlist *m3u8.MediaPlaylist) (time.Duration, error) {
	if !playlist.Closed {
		return 0, ErrLivePlaylist
	}

	var seconds float64
	for _, seg := range playlist.Segments {
		if seg != nil {
			seconds += seg.Duration
		}
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("%w: playlist has no segments", ErrInvalidAsset)
	}
	return time.Duration(seconds * float64(time.Second)).Round(time.Millisecond), nil
}

func (p *PlaylistProber) decode(ctx context.Context, asset string) (m3u8.Playlist, m3u8.ListType, error) {
	body, err := p.open(ctx, asset)
	if err != nil {
		return nil, 0, err
	}
	defer body.Close()

	playlist, listType, err := m3u8.DecodeFrom(io.LimitReader(body, maxPlaylistBytes), false)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidAsset, err)
	}
	return playlist, listType, nil
}

func (p *PlaylistProber) open(ctx context.Context, asset string) (io.ReadCloser, error) {
	u, err := url.Parse(asset)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		f, err := os.Open(strings.TrimPrefix(asset, "file://"))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %v", ErrInvalidAsset, err)
			}
			return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
		}
		return f, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAsset, err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	switch {
	case resp.StatusCode >= 500:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnreachable, resp.Status)
	case resp.StatusCode >= 300:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrInvalidAsset, resp.Status)
	}
	return resp.Body, nil
}

// resolveReference resolves a variant URI against the playlist that listed it
func resolveReference(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err == nil && (b.Scheme == "http" || b.Scheme == "https") {
		r, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("%w: bad variant uri %q", ErrInvalidAsset, ref)
		}
		return b.ResolveReference(r).String(), nil
	}
	if filepath.IsAbs(ref) {
		return ref, nil
	}
	return filepath.Join(filepath.Dir(strings.TrimPrefix(base, "file://")), ref), nil
}
