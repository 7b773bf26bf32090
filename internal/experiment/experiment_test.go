package experiment_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/multinet/internal/config"
	"github.com/san-kum/multinet/internal/controllers"
	"github.com/san-kum/multinet/internal/coupling"
	"github.com/san-kum/multinet/internal/experiment"
	"github.com/san-kum/multinet/internal/network"
)

const lgasHHV = 41.2

func runPreset(name string, edit ...func(*config.Config)) (*experiment.Experiment, *coupling.Result, error) {
	cfg := config.GetPreset(name)
	Expect(cfg).NotTo(BeNil(), "preset %s", name)
	for _, fn := range edit {
		fn(cfg)
	}
	exp := experiment.New(cfg)
	Expect(exp.Setup()).To(Succeed())
	res, err := exp.Run(context.Background())
	return exp, res, err
}

func converged(name string) *experiment.Experiment {
	exp, res, err := runPreset(name)
	Expect(err).NotTo(HaveOccurred())
	Expect(res.State).To(Equal(coupling.Converged))
	return exp
}

func hydraulic(exp *experiment.Experiment, name string) *network.HydraulicNet {
	net, ok := exp.MultiNet().Network(name)
	Expect(ok).To(BeTrue())
	hn, ok := net.(*network.HydraulicNet)
	Expect(ok).To(BeTrue())
	Expect(hn.Converged).To(BeTrue())
	return hn
}

func power(exp *experiment.Experiment, name string) *network.PowerNet {
	net, ok := exp.MultiNet().Network(name)
	Expect(ok).To(BeTrue())
	pn, ok := net.(*network.PowerNet)
	Expect(ok).To(BeTrue())
	return pn
}

var _ = Describe("Coupled scenarios", func() {
	Context("single pipe", func() {
		It("converges after the gas solve", func() {
			exp := converged("single_pipe")
			gas := hydraulic(exp, "gas")

			Expect(gas.ResPipe[0].MdotKgPerS).To(BeNumerically("~", 1, 1e-3))
			Expect(gas.ResJunction[1].PBar).To(BeNumerically("<", 5))
		})

		It("describes one gas network and no power network", func() {
			exp := converged("single_pipe")
			mn := exp.MultiNet()

			Expect(mn.Describe()).To(Equal("This multi net includes following nets:\n" +
				"   - gas (1 pipe network)\n" +
				"and the following parameter tables:\n" +
				"   - controller (1 elements)"))
			counts := mn.CountByClass()
			Expect(counts[network.ClassGas]).To(Equal(1))
			Expect(counts[network.ClassPower]).To(BeZero())
			Expect(mn.PowerNet()).To(BeNil())
			Expect(mn.GasNet()).NotTo(BeNil())
		})
	})

	Context("heat networks", func() {
		It("splits flow at a tee", func() {
			heat := hydraulic(converged("tee"), "heat")
			Expect(heat.ResPipe[0].MdotKgPerS).To(BeNumerically("~", 2, 1e-3))
			Expect(heat.ResPipe[1].MdotKgPerS).To(BeNumerically("~", 1, 1e-3))
			Expect(heat.ResPipe[2].MdotKgPerS).To(BeNumerically("~", 1, 1e-3))
		})

		It("reverses a pipe fed from both ends", func() {
			heat := hydraulic(converged("direction_changed"), "heat")
			Expect(heat.ResPipe[1].MdotKgPerS).To(BeNumerically("~", -0.5, 1e-3))
			Expect(heat.ResJunction[3].TK).To(BeNumerically("<", heat.ResJunction[2].TK))
		})

		It("balances a mesh", func() {
			heat := hydraulic(converged("mesh"), "heat")
			Expect(heat.ResPipe[0].MdotKgPerS).To(BeNumerically("~", 1, 1e-3))
		})
	})

	Context("sector coupling", func() {
		It("feeds electrolyser gas and charges the compressor", func() {
			exp, res, err := runPreset("p2g")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Iterations).To(HaveKeyWithValue("0", 2))
			Expect(res.Iterations).To(HaveKeyWithValue("1", 2))

			gas := hydraulic(exp, "gas")
			injected := 2 * 0.7 / lgasHHV
			Expect(gas.Source[0].MdotKgPerS).To(BeNumerically("~", injected, 1e-9))
			supply := gas.ResExtGrid[0].MdotKgPerS
			Expect(supply).To(BeNumerically("~", 0.2-injected, 1e-3))

			grid := power(exp, "power")
			Expect(grid.Load[1].PMW).To(BeNumerically("~", supply*0.3, 1e-9))
			Expect(grid.Converged).To(BeTrue())
			Expect(grid.ResExtGrid[0].PMW).To(BeNumerically("~", 2+grid.Load[1].PMW, 1e-6))
		})

		It("generates power from the gas offtake", func() {
			exp := converged("g2p")
			grid := power(exp, "power")

			chp := 0.1 * lgasHHV * 0.45
			Expect(grid.SGen[0].PMW).To(BeNumerically("~", chp, 1e-9))
			Expect(grid.ResExtGrid[0].PMW).To(BeNumerically("~", 5-chp, 1e-6))
		})

		It("drives a heat pump source", func() {
			exp := converged("heat_pump")
			heat := hydraulic(exp, "heat")

			mdot := 0.02e6 * 3 / (4182 * 30.0)
			Expect(heat.Source[0].MdotKgPerS).To(BeNumerically("~", mdot, 1e-6))
			Expect(heat.ResExtGrid[0].MdotKgPerS).To(BeNumerically("~", 1-mdot, 1e-3))
		})
	})

	Context("failures", func() {
		It("reports non-convergence when the iteration limit is too low", func() {
			_, res, err := runPreset("p2g", func(c *config.Config) { c.Run.MaxIterations = 1 })
			Expect(err).To(MatchError(coupling.ErrLevelNonConvergence))
			Expect(res.State).To(Equal(coupling.Failed))
		})

		It("rejects unknown controller types", func() {
			cfg := config.GetPreset("single_pipe")
			cfg.Controllers[0].Type = "turbine"
			Expect(experiment.New(cfg).Setup()).To(MatchError(ContainSubstring("unknown controller type")))
		})

		It("refuses to run before setup", func() {
			_, err := experiment.New(config.GetPreset("mesh")).Run(context.Background())
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("Registry", func() {
	It("lists the built-in controller types", func() {
		Expect(experiment.NewRegistry().ListControllers()).To(Equal(
			[]string{"compressor", "const", "g2p", "p2g", "p2h"}))
	})

	It("applies a configured tolerance", func() {
		c, err := experiment.NewRegistry().GetController("p2g", "e", config.ControllerParams{Tol: 0.5})
		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(BeAssignableToTypeOf(&controllers.P2G{}))
		Expect(c.(*controllers.P2G).Tol).To(Equal(0.5))
	})

	It("builds networks from config entries", func() {
		net, err := experiment.BuildNetwork(config.NetworkConfig{Name: "dh", Kind: "district_heating", AmbientK: 280})
		Expect(err).NotTo(HaveOccurred())
		Expect(net.Domain()).To(Equal(network.Heat))
		Expect(net.(*network.HydraulicNet).Fluid.Name).To(Equal(config.DefaultFluidHeat))

		_, err = experiment.BuildNetwork(config.NetworkConfig{Name: "x", Kind: "steam"})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Ensemble", func() {
	It("runs scenarios concurrently and keeps input order", func() {
		cfgs := []*config.Config{
			config.GetPreset("tee"),
			config.GetPreset("g2p"),
			nil,
			config.GetPreset("mesh"),
		}
		failing := config.GetPreset("p2g")
		failing.Run.MaxIterations = 1
		cfgs = append(cfgs, failing)

		outcomes := experiment.NewEnsemble(cfgs, 3).Run(context.Background())
		Expect(outcomes).To(HaveLen(5))

		Expect(outcomes[0].Scenario).To(Equal("tee"))
		Expect(outcomes[0].Err).NotTo(HaveOccurred())
		Expect(outcomes[1].Result.State).To(Equal(coupling.Converged))
		Expect(outcomes[2].Err).To(HaveOccurred())
		Expect(outcomes[3].MultiNet.Len()).To(Equal(1))
		Expect(outcomes[4].Err).To(MatchError(coupling.ErrLevelNonConvergence))
	})

	It("keeps networks of different runs apart", func() {
		outcomes := experiment.NewEnsemble([]*config.Config{
			config.GetPreset("single_pipe"),
			config.GetPreset("single_pipe"),
		}, 2).Run(context.Background())

		a, _ := outcomes[0].MultiNet.Network("gas")
		b, _ := outcomes[1].MultiNet.Network("gas")
		Expect(a).NotTo(BeIdenticalTo(b))
	})
})
