package proof

import (
	"hash/adler32"
	"os"

	"github.com/bwmarrin/snowflake"
)

var globalIdGenerator *snowflake.Node = nil

// generateKey produces the engine key for one generated proof file.
func (engine *Engine) generateKey() int64 {
	return getGlobalSnowflakeIdGenerator().Generate().Int64()
}

// getGlobalSnowflakeIdGenerator the global ID generator
// constraints: see also createSnowflakeIdGenerator
func getGlobalSnowflakeIdGenerator() *snowflake.Node {
	if globalIdGenerator == nil {
		globalIdGenerator = createSnowflakeIdGenerator()
	}
	return globalIdGenerator
}

// createSnowflakeIdGenerator a new ID generator,
// constraints: creating two new instances within a few microseconds, will create generators with the same seed
func createSnowflakeIdGenerator() *snowflake.Node {
	hash32 := adler32.New()
	for _, e := range os.Environ() {
		hash32.Sum([]byte(e))
	}
	snowflakeNode, err := snowflake.NewNode(int64(hash32.Sum32()) % 1024)
	if err != nil {
		panic("can't initialize snowflake ID generator. Message: " + err.Error())
	}
	return snowflakeNode
}
