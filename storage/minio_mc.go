package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// BucketStats 存储桶统计信息
type BucketStats struct {
	Bucket       string
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
	// TypeStats counts objects per file extension.
	TypeStats map[string]int64
}

// ObjectInfo 文件信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// Inspector lists and prunes the media bucket for the minio command.
type Inspector struct {
	client *minio.Client
	bucket string
	out    io.Writer
}

// NewInspector 创建存储桶管理工具
func NewInspector(client *minio.Client, bucket string, out io.Writer) *Inspector {
	return &Inspector{client: client, bucket: bucket, out: out}
}

func (m *Inspector) checkBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶是否存在失败: %w", err)
	}
	if !exists {
		return fmt.Errorf("存储桶 %s 不存在", m.bucket)
	}
	return nil
}

// List returns every object under prefix.
func (m *Inspector) List(ctx context.Context, prefix string, recursive bool) ([]ObjectInfo, error) {
	if err := m.checkBucket(ctx); err != nil {
		return nil, err
	}
	var objects []ObjectInfo
	for object := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: recursive,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("列出对象时出错: %w", object.Err)
		}
		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  object.ContentType,
		})
	}
	return objects, nil
}

// PrintList 打印文件列表
func (m *Inspector) PrintList(ctx context.Context, prefix string) error {
	objects, err := m.List(ctx, prefix, true)
	if err != nil {
		return err
	}
	stats := summarize(m.bucket, objects)
	fmt.Fprintf(m.out, "存储桶: %s\n", stats.Bucket)
	fmt.Fprintf(m.out, "前缀过滤: %s\n", prefix)
	fmt.Fprintf(m.out, "总文件数: %d\n", stats.TotalObjects)
	fmt.Fprintf(m.out, "总存储大小: %s\n", formatSize(stats.TotalSize))
	fmt.Fprintln(m.out, "\n文件列表:")
	for _, obj := range objects {
		fmt.Fprintf(m.out, "  %s  %s  %s\n", obj.Key, formatSize(obj.Size),
			obj.LastModified.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// PrintStats 打印存储桶统计信息
func (m *Inspector) PrintStats(ctx context.Context) error {
	objects, err := m.List(ctx, "", true)
	if err != nil {
		return err
	}
	stats := summarize(m.bucket, objects)

	fmt.Fprintf(m.out, "\n=== 存储桶统计信息 ===\n")
	fmt.Fprintf(m.out, "存储桶名称: %s\n", stats.Bucket)
	fmt.Fprintf(m.out, "总大小: %s\n", formatSize(stats.TotalSize))
	fmt.Fprintf(m.out, "对象总数: %d\n", stats.TotalObjects)
	if !stats.LastModified.IsZero() {
		fmt.Fprintf(m.out, "最后修改时间: %s\n", stats.LastModified.Format(time.RFC3339))
	}

	fmt.Fprintf(m.out, "\n文件类型统计:\n")
	exts := make([]string, 0, len(stats.TypeStats))
	for ext := range stats.TypeStats {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		fmt.Fprintf(m.out, "%s: %d 个文件\n", ext, stats.TypeStats[ext])
	}
	return nil
}

// PrintTree 递归打印目录结构
func (m *Inspector) PrintTree(ctx context.Context, prefix string) error {
	objects, err := m.List(ctx, prefix, true)
	if err != nil {
		return err
	}
	for _, line := range treeLines(objects) {
		fmt.Fprintln(m.out, line)
	}
	return nil
}

// DeletePrefix 递归删除目录, returning the number of removed objects.
func (m *Inspector) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if strings.TrimSpace(prefix) == "" {
		return 0, fmt.Errorf("删除操作需要指定目录前缀")
	}
	objects, err := m.List(ctx, prefix, true)
	if err != nil {
		return 0, err
	}
	if len(objects) == 0 {
		return 0, fmt.Errorf("目录 %s 为空或不存在", prefix)
	}

	objectsCh := make(chan minio.ObjectInfo, len(objects))
	for _, obj := range objects {
		objectsCh <- minio.ObjectInfo{Key: obj.Key}
	}
	close(objectsCh)

	for rerr := range m.client.RemoveObjects(ctx, m.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if rerr.Err != nil {
			return 0, fmt.Errorf("删除对象 %s 失败: %w", rerr.ObjectName, rerr.Err)
		}
	}
	fmt.Fprintf(m.out, "成功删除目录 %s 及其下的 %d 个文件\n", prefix, len(objects))
	return len(objects), nil
}

func summarize(bucket string, objects []ObjectInfo) BucketStats {
	stats := BucketStats{Bucket: bucket, TypeStats: make(map[string]int64)}
	for _, obj := range objects {
		stats.TotalObjects++
		stats.TotalSize += obj.Size
		if obj.LastModified.After(stats.LastModified) {
			stats.LastModified = obj.LastModified
		}
		ext := strings.ToLower(path.Ext(obj.Key))
		if ext == "" {
			ext = "unknown"
		}
		stats.TypeStats[ext]++
	}
	return stats
}

// treeLines renders objects as an indented directory listing, directories first.
func treeLines(objects []ObjectInfo) []string {
	dirs := make(map[string]bool)
	files := make(map[string][]ObjectInfo)
	for _, obj := range objects {
		dir := path.Dir(obj.Key)
		if dir == "." {
			dir = ""
		}
		files[dir] = append(files[dir], obj)
		for d := dir; d != "" && d != "."; d = path.Dir(d) {
			dirs[d] = true
		}
	}

	sorted := make([]string, 0, len(dirs))
	for d := range dirs {
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)

	var lines []string
	for _, dir := range sorted {
		indent := strings.Repeat("  ", strings.Count(dir, "/"))
		lines = append(lines, fmt.Sprintf("%s📁 %s/", indent, dir))
		for _, obj := range files[dir] {
			lines = append(lines, fmt.Sprintf("%s  📄 %s (%s)", indent, path.Base(obj.Key), formatSize(obj.Size)))
		}
	}
	for _, obj := range files[""] {
		lines = append(lines, fmt.Sprintf("📄 %s (%s)", obj.Key, formatSize(obj.Size)))
	}
	return lines
}

// formatSize 格式化文件大小
func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

// inferContentType 从文件名推断内容类型
func inferContentType(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".flac":
		return "audio/flac"
	case ".m4a":
		return "audio/mp4"
	case ".ogg":
		return "audio/ogg"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// IsAudioFile reports whether filename has a supported audio extension.
func IsAudioFile(filename string) bool {
	return strings.HasPrefix(inferContentType(filename), "audio/")
}
