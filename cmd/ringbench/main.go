// ringbench 运行环形管道基准：N 个缓冲区沿管道环各轮转 K 次，输出耗时。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/favbox/gale/common/config"
	"github.com/favbox/gale/common/hlog"
	"github.com/favbox/gale/common/json"
	"github.com/favbox/gale/common/mock"
	"github.com/favbox/gale/internal/ring"
	"github.com/favbox/gale/network"
	"github.com/favbox/gale/reactor"
	"golang.org/x/sync/errgroup"
)

var (
	n       = flag.Int("n", 500, "环上的缓冲区数量")
	iters   = flag.Int("iters", 10000, "每个缓冲区的轮转次数")
	loops   = flag.Int("loops", 1, "并发运行的独立事件循环数量")
	useMock = flag.Bool("mock", false, "使用内存端点代替系统管道")
	asJSON  = flag.Bool("json", false, "以 JSON 格式输出结果")
)

type result struct {
	Loop  int           `json:"loop"`
	N     int           `json:"n"`
	Iters int           `json:"iters"`
	Usec  int64         `json:"usec"`
	Stats reactor.Stats `json:"stats"`
}

func main() {
	flag.Parse()
	if *n < 1 || *iters < 1 || *loops < 1 {
		fmt.Fprintln(os.Stderr, "ringbench: -n、-iters 和 -loops 必须为正数")
		flag.Usage()
		os.Exit(2)
	}

	if !*useMock {
		// 每个缓冲区占用两个描述符，另留余量给标准流和轮询器
		want := uint64(*loops)*uint64(*n)*2 + uint64(*loops) + 16
		if err := raiseFileLimit(want); err != nil {
			hlog.Warnf("提升文件描述符上限至 %d 失败: %v", want, err)
		}
	}

	results := make([]result, *loops)
	var g errgroup.Group
	for i := range results {
		i := i
		g.Go(func() error {
			res, err := run(*n, *iters, *useMock)
			if err != nil {
				return fmt.Errorf("loop %d: %w", i, err)
			}
			res.Loop = i
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		hlog.Fatal(err)
	}

	if *asJSON {
		if err := json.NewEncoder(os.Stdout).Encode(results); err != nil {
			hlog.Fatal(err)
		}
		return
	}
	for _, res := range results {
		fmt.Printf("run-many: %d %d iterations: %d usec\n", res.N, res.Iters, res.Usec)
	}
}

func run(n, iters int, inMemory bool) (result, error) {
	res := result{N: n, Iters: iters}

	var (
		opts []config.Option
		pipe ring.PipeFunc = osPipe
	)
	if inMemory {
		opts = append(opts, reactor.WithPoller(mock.Newer()), reactor.WithMaxEvents(2*n))
		pipe = memPipe
	}
	l, err := reactor.NewLoop(opts...)
	if err != nil {
		return res, err
	}
	defer l.Close()

	r, err := ring.New(l, n, iters, pipe)
	if err != nil {
		return res, err
	}
	defer r.Release()

	start := time.Now()
	if err = l.Run(context.Background()); err != nil {
		return res, err
	}
	res.Usec = time.Since(start).Microseconds()
	res.Stats = l.Stats()

	if err = r.Err(); err != nil {
		return res, err
	}
	return res, r.Verify()
}

func memPipe() (network.Endpoint, network.Endpoint, error) {
	r, w := mock.NewPipe()
	return r, w, nil
}
