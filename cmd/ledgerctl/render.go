package main

import (
	"encoding/json"
	"fmt"

	"github.com/pterm/pterm"
	"gopkg.in/yaml.v3"
)

// render 依 --output 輸出；table 模式呼叫 table 取得表格資料
func (a *app) render(v any, table func() pterm.TableData) error {
	switch a.output() {
	case "json":
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(a.out)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return pterm.DefaultTable.WithHasHeader().WithWriter(a.out).WithData(table()).Render()
	}
}

// success table 模式下的單行訊息
func (a *app) success(format string, args ...any) {
	if a.output() != "table" {
		return
	}
	pterm.Success.WithWriter(a.out).Println(fmt.Sprintf(format, args...))
}
