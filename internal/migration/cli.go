package migration

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
)

// CLI 为 metaexpert migrate 子命令提供格式化输出。
type CLI struct {
	migrator Migrator
	out      io.Writer
}

// NewCLI 创建 CLI，默认写到标准输出。
func NewCLI(migrator Migrator) *CLI {
	return &CLI{migrator: migrator, out: os.Stdout}
}

// SetOutput 重定向输出，测试用。
func (c *CLI) SetOutput(w io.Writer) {
	c.out = w
}

// RunUp 应用所有未执行的迁移并打印结果版本。
func (c *CLI) RunUp(ctx context.Context) error {
	fmt.Fprintln(c.out, "Applying migrations...")
	if err := c.migrator.Up(ctx); err != nil {
		return err
	}
	version, _, err := c.migrator.Version(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Migrations applied. Current version: %d\n", version)
	return nil
}

// RunDown 回滚最近一次迁移并打印结果版本。
func (c *CLI) RunDown(ctx context.Context) error {
	fmt.Fprintln(c.out, "Rolling back last migration...")
	if err := c.migrator.Down(ctx); err != nil {
		return err
	}
	version, _, err := c.migrator.Version(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Rollback complete. Current version: %d\n", version)
	return nil
}

// RunVersion 打印当前版本。
func (c *CLI) RunVersion(ctx context.Context) error {
	version, dirty, err := c.migrator.Version(ctx)
	if err != nil {
		return err
	}
	if version == 0 {
		fmt.Fprintln(c.out, "No migrations applied yet.")
		return nil
	}
	fmt.Fprintf(c.out, "Current version: %d", version)
	if dirty {
		fmt.Fprint(c.out, " (dirty)")
	}
	fmt.Fprintln(c.out)
	return nil
}

// RunStatus 打印所有迁移的应用状态表。
func (c *CLI) RunStatus(ctx context.Context) error {
	statuses, err := c.migrator.Status(ctx)
	if err != nil {
		return err
	}
	if len(statuses) == 0 {
		fmt.Fprintln(c.out, "No migrations found.")
		return nil
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tSTATUS")
	applied := 0
	for _, s := range statuses {
		status := "Pending"
		if s.Applied {
			status = "Applied"
			applied++
		}
		if s.Dirty {
			status = "Dirty"
		}
		fmt.Fprintf(w, "%04d\t%s\t%s\n", s.Version, s.Name, status)
	}
	w.Flush()

	fmt.Fprintf(c.out, "\nApplied %d of %d migrations.\n", applied, len(statuses))
	return nil
}
