// Demo program to showcase the triage browser with a realistic month of builds.
// With a path argument the sample cache is also written there, for use with
// `triage summary --cache <path>`.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"buildtriage/src/contracts"
	"buildtriage/src/store"
	"buildtriage/src/tui"
)

type sampleFailure struct {
	typ         string
	description string
	category    contracts.Category
	details     []string
	// chance per failed build
	weight float64
}

var sampleFailures = []sampleFailure{
	{
		typ:         "AptFailure",
		description: "Failures relating to APT, the Debian/Ubuntu package manager",
		category:    contracts.CategoryRemoteDependency,
		details: []string{
			"Apt Fetch Fail: http://archive.ubuntu.com/ubuntu/pool/main/o/openssl/libssl1.0.0_1.0.2g-1ubuntu4.13_amd64.deb",
			"Apt Package Not Found: python-ldappool",
		},
		weight: 0.35,
	},
	{
		typ:         "SSHFailure",
		description: "SSH connection to a test node failed",
		category:    contracts.CategorySSH,
		details: []string{
			"ssh: connect to host 172.29.236.100 port 22: Connection refused",
			"ssh: connect to host 172.29.236.118 port 22: No route to host",
		},
		weight: 0.2,
	},
	{
		typ:         "PipFailure",
		description: "Pip failed to install a Python package",
		category:    contracts.CategoryRemoteDependency,
		details: []string{
			"Could not find a version that satisfies the requirement oslo.config===5.2.1",
		},
		weight: 0.15,
	},
	{
		typ:         "AnsibleTaskFailure",
		description: "An Ansible task failed",
		category:    contracts.CategoryLocalTask,
		details: []string{
			"os_keystone : Ensure service tenant",
			"galera_server : Check that WSREP is ready",
			"rabbitmq_server : Join rabbitmq cluster",
		},
		weight: 0.3,
	},
	{
		typ:         "TempestTestFailure",
		description: "A tempest test failed",
		category:    contracts.CategoryTempest,
		details: []string{
			"tempest.api.compute.servers.test_create_server.ServersTestJSON.test_verify_server_details",
			"tempest.scenario.test_network_basic_ops.TestNetworkBasicOps.test_network_basic_ops",
		},
		weight: 0.2,
	},
	{
		typ:         "JenkinsException",
		description: "Jenkins threw an exception",
		category:    contracts.CategoryInfra,
		details: []string{
			"hudson.remoting.ChannelClosedException: Channel \"unknown\": Remote call on JNLP4-connect connection failed",
		},
		weight: 0.1,
	},
}

var sampleJobs = []string{
	"PM_rpc-openstack-newton-xenial_aio-swift",
	"PM_rpc-openstack-pike-xenial_mnaio_no_artifacts-swift-system",
	"PR_rpc-openstack-master-xenial_aio-swift",
	"PR_rpc-maas-master-trusty_aio",
}

func generateSampleData(now time.Time) *store.Document {
	rng := rand.New(rand.NewSource(42))
	doc := store.NewDocument()
	doc.Timestamp = now

	for i := 0; i < 400; i++ {
		job := sampleJobs[rng.Intn(len(sampleJobs))]
		num := fmt.Sprint(1000 + i)
		b := &contracts.Build{
			ID:        contracts.BuildID(job, num),
			JobName:   job,
			BuildNum:  num,
			Result:    contracts.ResultSuccess,
			Timestamp: now.Add(-time.Duration(rng.Int63n(int64(30 * 24 * time.Hour)))),
			Branch:    "master",
			Repo:      "rcbops/rpc-openstack",
			Stage:     contracts.StageFromJobName(job),
			Trigger:   contracts.TriggerPeriodic,
			BuildHierarchy: []contracts.Cause{
				{Name: "Timer", URL: "#"},
				{Name: job, BuildNum: num, URL: fmt.Sprintf("https://jenkins.example.com/job/%s/%s", job, num)},
			},
		}

		if rng.Float64() < 0.4 {
			b.Result = contracts.ResultFailure
			if rng.Float64() < 0.1 {
				b.Result = contracts.ResultAborted
			}
		}

		for _, sf := range sampleFailures {
			chance := sf.weight
			if !b.Failed() {
				// infrastructure noise also shows up on passing builds
				if sf.category != contracts.CategoryInfra {
					continue
				}
				chance /= 4
			}
			if rng.Float64() >= chance {
				continue
			}
			id := fmt.Sprintf("%s-%d", b.ID, len(b.Failures))
			detail := sf.details[rng.Intn(len(sf.details))]
			f := contracts.NewFailure(id, b.ID, sf.typ, sf.description, sf.category, detail)
			b.AddFailure(id)
			doc.Failures[id] = f
		}
		doc.Builds[b.ID] = b
	}
	return doc
}

func main() {
	fmt.Println("Generating sample builds...")
	doc := generateSampleData(time.Now())
	fmt.Printf("Generated %d builds with %d failures.\n", len(doc.Builds), len(doc.Failures))

	var st store.Store = store.NewMemoryStore()
	if len(os.Args) > 1 {
		st = store.NewFileStore(os.Args[1])
		fmt.Printf("Writing sample cache to %s\n", os.Args[1])
	}
	if err := st.Save(context.Background(), doc); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving sample cache: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Launching TUI...")
	time.Sleep(500 * time.Millisecond)

	if err := tui.Start(st); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
