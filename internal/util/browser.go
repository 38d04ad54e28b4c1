package util

import (
	"fmt"
	"os/exec"
	"runtime"
)

// browserCommands 各平台打开链接的候选命令，按顺序尝试
func browserCommands(goos, url string) [][]string {
	switch goos {
	case "windows":
		// rundll32 在 Windows 7 上比 cmd /c start 稳定
		return [][]string{
			{"rundll32", "url.dll,FileProtocolHandler", url},
			{"explorer", url},
		}
	case "darwin":
		return [][]string{{"open", url}}
	default:
		return [][]string{
			{"xdg-open", url},
			{"sensible-browser", url},
			{"google-chrome", url},
			{"firefox", url},
			{"chromium-browser", url},
		}
	}
}

// OpenBrowser 打开默认浏览器查看报告页
func OpenBrowser(url string) error {
	var lastErr error
	for _, argv := range browserCommands(runtime.GOOS, url) {
		if err := exec.Command(argv[0], argv[1:]...).Start(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no browser command for %s", runtime.GOOS)
	}
	return lastErr
}
