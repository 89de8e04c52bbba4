// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// The lend command is operator tooling for the lending core: it spins up
// an in memory deployment and walks a full emission cycle, which doubles
// as a smoke test of a build and a worked example of the call flow.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/luxfi/lend/backstop"
	"github.com/luxfi/lend/chain"
	"github.com/luxfi/lend/cmd/lend/config"
	"github.com/luxfi/lend/log"
	"github.com/luxfi/lend/metrics"
	"github.com/luxfi/lend/params"
	"github.com/luxfi/lend/storage"
	"github.com/luxfi/lend/testutils"
)

func main() {
	fs := config.BuildFlagSet()
	v, err := config.BuildViper(fs, os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Printf("couldn't build viper: %s\n", err)
		os.Exit(1)
	}
	if v.GetBool(config.VersionKey) {
		fmt.Printf("%s\n", config.Version)
		os.Exit(0)
	}

	var writer io.Writer = os.Stderr
	useColor := isatty.IsTerminal(os.Stderr.Fd())
	if path := v.GetString(config.LogFileKey); path != "" {
		writer = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename: path,
			MaxSize:  v.GetInt(config.LogMaxSizeKey),
			MaxAge:   v.GetInt(config.LogMaxAgeKey),
		})
		useColor = false
	}
	logger, err := log.InitLogger("lend", v.GetString(config.LogLevelKey), v.GetBool(config.LogJSONKey), useColor, writer)
	if err != nil {
		fmt.Printf("couldn't initialize logger: %s\n", err)
		os.Exit(1)
	}

	if err := runEmissionCycle(v, logger); err != nil {
		logger.Error("emission cycle failed", "err", err)
		os.Exit(1)
	}
}

// runEmissionCycle deploys an in memory backstop, seeds one pool's deposit
// book, and drives distribute then gulp, logging the realised amounts.
func runEmissionCycle(v *viper.Viper, logger log.Logger) error {
	host := storage.NewHost(memdb.New())
	reg := prometheus.NewRegistry()

	backstopAddr := common.HexToAddress("0x01")
	pool := common.HexToAddress("0x02")
	depositor := common.HexToAddress("0x03")
	if s := v.GetString(config.BackstopKey); s != "" {
		backstopAddr = common.HexToAddress(s)
	}

	lpToken := testutils.NewMockBackstopToken(uint256.NewInt(10*1e7), uint256.NewInt(2_500_000))
	rewardToken := testutils.NewMockToken()
	emitter := &testutils.MockEmitter{Registered: true}

	bs := backstop.New(backstop.Config{
		Address:     backstopAddr,
		Host:        host,
		Token:       lpToken,
		RewardToken: rewardToken,
		Emitter:     emitter,
		Log:         logger.Logger,
		Metrics:     metrics.New(reg),
	})

	now := uint64(time.Now().Unix())
	ctx := chain.Context{Timestamp: now, Sequence: 1}

	deposit := new(uint256.Int).Mul(uint256.NewInt(100_000), params.Scalar7)
	lpToken.Mint(depositor, deposit)
	rewardToken.Mint(backstopAddr, new(uint256.Int).Mul(uint256.NewInt(10_000_000), params.Scalar7))

	if _, err := bs.Deposit(ctx, depositor, pool, deposit); err != nil {
		return err
	}
	if err := bs.AddReward(ctx, pool, nil); err != nil {
		return err
	}

	emitter.DistroTime = now
	if _, err := bs.Distribute(ctx); err != nil {
		return err
	}

	gap := uint64(config.EmitterGap(v) / time.Second)
	ctx = chain.Context{Timestamp: now + gap, Sequence: 2}
	emitter.DistroTime = now + gap
	emitted, err := bs.Distribute(ctx)
	if err != nil {
		return err
	}
	backstopEmis, poolEmis, err := bs.GulpEmissions(ctx, pool)
	if err != nil {
		return err
	}
	logger.Info("emission cycle complete",
		"emitted", emitted, "backstopShare", backstopEmis, "poolShare", poolEmis)
	return nil
}
