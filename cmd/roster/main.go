// roster 命令行排班：读取配置文件，运行完整排班流程，输出方案 JSON

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/input"
	"github.com/paiban/roster/pkg/logger"
	"github.com/paiban/roster/pkg/scheduler"
	"github.com/paiban/roster/pkg/scheduler/constraint"
	"github.com/paiban/roster/pkg/scheduler/optimizer"
	"github.com/paiban/roster/pkg/stats"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", "input.json", "配置文件路径（.json/.yaml）")
		outPath    = flag.String("out", "", "方案输出文件，默认标准输出")
		seed       = flag.Int64("seed", 1, "随机种子")
		iterations = flag.Int("iterations", 0, "退火迭代次数，0 使用默认值")
		chains     = flag.Int("chains", 1, "并行退火链数")
		timeout    = flag.Duration("timeout", 0, "最长运行时间，超时输出截至当时的最优解")
		skipOpt    = flag.Bool("no-optimize", false, "只生成初始排班")
		report     = flag.Bool("report", false, "在标准错误输出覆盖率报告")
		logLevel   = flag.String("log-level", "warn", "日志级别")
	)
	flag.Parse()

	logger.Init(logger.Config{Level: *logLevel, Format: "console", Output: "stderr"})

	doc, err := input.Load(*configPath)
	if err != nil {
		printError(err)
		return 2
	}
	setup, err := doc.Setup()
	if err != nil {
		printError(err)
		return 2
	}

	optConfig := optimizer.DefaultOptConfig()
	optConfig.Seed = *seed
	optConfig.Chains = *chains
	if *iterations > 0 {
		optConfig.MaxIterations = *iterations
	}
	if err := input.ValidateStruct(optConfig); err != nil {
		printError(err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	start := time.Now()
	plan, err := scheduler.NewEngine().Run(ctx, setup, doc.WeightSet(), &scheduler.Options{
		Optimizer:    optConfig,
		SkipOptimize: *skipOpt,
	})
	if plan == nil {
		printError(err)
		return 1
	}
	if err != nil {
		logger.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("排班被中断，输出当前最优解")
	}

	if err := writePlan(*outPath, plan); err != nil {
		printError(err)
		return 1
	}

	if *report {
		analyzer := stats.NewCoverageAnalyzer(constraint.NewContext(setup))
		fmt.Fprint(os.Stderr, analyzer.GenerateCoverageReport(plan.Coverage))
		fmt.Fprintf(os.Stderr, "总成本: %.2f  可行: %v  缺口人时: %d\n",
			plan.Cost.Total, plan.Report.Feasible(), plan.Report.UnderstaffedHours)
	}

	if plan.Partial() {
		return 3
	}
	return 0
}

// writePlan 以缩进 JSON 写出方案
func writePlan(path string, plan *scheduler.Plan) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "无法创建输出文件").WithField("path", path)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(plan)
}

// printError 输出错误码和出错字段
func printError(err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", apperrors.GetCode(err), err)
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		for field, msg := range appErr.Fields {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", field, msg)
		}
	}
}
