package youtube

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	ytdl "github.com/kkdai/youtube/v2"

	"ytharvest/internal/models"
)

// Download retrieves the media for one job and writes it under the
// job's destination directory. The file name comes from the video title.
func (c *Client) Download(ctx context.Context, job models.DownloadJob) (models.DownloadResult, error) {
	var zero models.DownloadResult

	video, err := c.client.GetVideoContext(ctx, job.Link)
	if err != nil {
		return zero, fmt.Errorf("failed to get video: %w", err)
	}

	format, err := selectFormat(video, job.Quality, job.Format, job.Resolution)
	if err != nil {
		return zero, err
	}

	stream, _, err := c.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return zero, fmt.Errorf("failed to get stream: %w", err)
	}
	defer stream.Close()

	if err := os.MkdirAll(job.Destination, 0o755); err != nil {
		return zero, fmt.Errorf("failed to create download directory: %w", err)
	}

	outputPath := filepath.Join(job.Destination, sanitizeFilename(video.Title)+extension(format.MimeType))

	file, err := os.Create(outputPath)
	if err != nil {
		return zero, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	written, err := copyWithContext(ctx, file, stream)
	if err != nil {
		os.Remove(outputPath) // 失敗時はファイルを削除
		return zero, fmt.Errorf("failed to download: %w", err)
	}

	return models.DownloadResult{BytesWritten: written, FilePath: outputPath}, nil
}

// selectFormat picks a stream format following the quality mapping:
// "audio" takes the best audio-only track, "worst" the lowest muxed
// format, "best" the highest. A resolution like "720" caps the height
// for video qualities; a container name ("mp4", "webm") restricts the
// mime type.
func selectFormat(video *ytdl.Video, quality, container, resolution string) (*ytdl.Format, error) {
	if quality == models.QualityAudio {
		return selectAudioFormat(video, container)
	}

	formats := video.Formats.WithAudioChannels()

	var candidates []ytdl.Format
	for _, f := range formats {
		if !strings.HasPrefix(f.MimeType, "video/") {
			continue
		}
		if container != "" && !strings.Contains(f.MimeType, container) {
			continue
		}
		candidates = append(candidates, f)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no matching video formats (container=%q)", container)
	}

	if maxHeight, err := strconv.Atoi(resolution); err == nil && maxHeight > 0 && quality != models.QualityWorst {
		var capped []ytdl.Format
		for _, f := range candidates {
			if f.Height <= maxHeight {
				capped = append(capped, f)
			}
		}
		// Nothing under the cap: fall through to the full list rather
		// than failing the job.
		if len(capped) > 0 {
			candidates = capped
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Height != candidates[j].Height {
			return candidates[i].Height > candidates[j].Height
		}
		return candidates[i].Bitrate > candidates[j].Bitrate
	})

	if quality == models.QualityWorst {
		return &candidates[len(candidates)-1], nil
	}
	return &candidates[0], nil
}

// selectAudioFormat picks the highest-bitrate audio-only format.
func selectAudioFormat(video *ytdl.Video, container string) (*ytdl.Format, error) {
	var candidates []ytdl.Format
	for _, f := range video.Formats {
		if !strings.HasPrefix(f.MimeType, "audio/") {
			continue
		}
		if container != "" && !strings.Contains(f.MimeType, container) {
			continue
		}
		candidates = append(candidates, f)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no audio formats available (container=%q)", container)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Bitrate > candidates[j].Bitrate
	})
	return &candidates[0], nil
}

// extension maps a MIME type to a file extension.
func extension(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "audio/") && strings.Contains(mimeType, "mp4"):
		return ".m4a"
	case strings.Contains(mimeType, "mp4"):
		return ".mp4"
	case strings.Contains(mimeType, "webm"):
		return ".webm"
	case strings.HasPrefix(mimeType, "audio/"):
		return ".audio"
	default:
		return ".bin"
	}
}

// copyWithContext copies the stream to dst, checking for cancellation
// between chunks.
func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 32*1024)
	var written int64

	for {
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}

		nr, err := src.Read(buf)
		if nr > 0 {
			nw, ew := dst.Write(buf[0:nr])
			written += int64(nw)
			if ew != nil {
				return written, ew
			}
		}
		if err != nil {
			if err == io.EOF {
				return written, nil
			}
			return written, err
		}
	}
}

// sanitizeFilename はファイル名として使えない文字を置換
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}
