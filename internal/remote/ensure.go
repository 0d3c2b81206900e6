package remote

import (
	"log"
	"strings"

	"github.com/hwuu/sftpproxy/internal/logutil"
)

// PlanDirectories 把目录路径拆成从根开始逐级累加的绝对路径。
// 空段被忽略，"//a//b/" 与 "/a/b" 得到相同结果：["/a", "/a/b"]。
func PlanDirectories(dir string) []string {
	var plan []string
	current := ""
	for _, segment := range strings.Split(dir, "/") {
		if segment == "" {
			continue
		}
		current += "/" + segment
		plan = append(plan, current)
	}
	return plan
}

// EnsureDirectory 保证 dir 的每一级目录都在远端存在，按祖先到后代的顺序逐级检查、缺失才创建。
// 已存在的目录只做检查不做创建，可重复调用。
// 检查与创建之间被其他上传抢先创建（Mkdir 失败但随后确认是目录）视为成功。
func EnsureDirectory(s Session, dir string) error {
	for _, current := range PlanDirectories(dir) {
		exists, err := s.Exists(current)
		if err != nil {
			return &DirectoryError{Segment: current, Err: err}
		}
		if exists {
			continue
		}

		if err := s.Mkdir(current); err != nil {
			if isDir, statErr := s.IsDir(current); statErr == nil && isDir {
				log.Printf("[remote] directory %s appeared concurrently, continuing", logutil.SanitizeForLog(current))
				continue
			}
			return &DirectoryError{Segment: current, Err: err}
		}
		log.Printf("[remote] created directory %s", logutil.SanitizeForLog(current))
	}
	return nil
}
