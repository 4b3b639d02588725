package forwarder

// relaySource is the entire forwarder program. It receives a CloudWatch Logs
// subscription event and re-invokes the central processor with the payload
// unmodified, asynchronously, so the forwarder never blocks on processing.
const relaySource = `import json
import os

import boto3

_lambda = boto3.client("lambda")


def handler(event, context):
    _lambda.invoke(
        FunctionName=os.environ["PROCESSOR_FUNCTION_ARN"],
        InvocationType="Event",
        Payload=json.dumps(event),
    )
`
