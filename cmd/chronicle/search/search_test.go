package searchcmder_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	searchcmder "github.com/papercomputeco/chronicle/cmd/chronicle/search"
)

var _ = Describe("search command", func() {
	var (
		buf      *bytes.Buffer
		response string
		lastURL  string
	)

	execute := func(args ...string) error {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lastURL = r.URL.String()
			_, _ = w.Write([]byte(response))
		}))
		DeferCleanup(server.Close)

		root := &cobra.Command{Use: "chronicle", SilenceUsage: true, SilenceErrors: true}
		root.PersistentFlags().Bool("debug", false, "")
		root.PersistentFlags().String("config-dir", GinkgoT().TempDir(), "")
		root.AddCommand(searchcmder.NewSearchCmd())
		root.SetOut(buf)
		root.SetArgs(append([]string{"search", "--api-target", server.URL, "--owner", "alice"}, args...))
		return root.Execute()
	}

	BeforeEach(func() {
		buf = &bytes.Buffer{}
	})

	It("prints IDs only in quiet mode", func() {
		response = `{"query":"pool","count":2,"results":[
			{"record":{"id":"r1","title":"Pools"},"score":0.9,"source":"vector"},
			{"record":{"id":"r2","title":"Workers"},"score":0.5,"source":"vector"}]}`

		Expect(execute("pool", "--quiet", "--top", "2")).To(Succeed())
		Expect(buf.String()).To(Equal("r1\nr2\n"))
		Expect(lastURL).To(ContainSubstring("limit=2"))
	})

	It("renders ranked results", func() {
		response = `{"query":"pool","count":1,"results":[
			{"record":{"id":"r1","title":"Pools","body":"bounded worker pools","tags":["go"]},"score":1,"source":"keyword"}]}`

		Expect(execute("pool")).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("#1"))
		Expect(buf.String()).To(ContainSubstring("Pools"))
		Expect(buf.String()).To(ContainSubstring("keyword"))
		Expect(buf.String()).To(ContainSubstring("#go"))
	})

	It("reports empty results", func() {
		response = `{"query":"nothing","count":0,"results":[]}`

		Expect(execute("nothing")).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("No results found."))
	})
})
